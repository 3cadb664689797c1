package export

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// firstPage validates a printed PDF and trims it to its first page.
func firstPage(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("export: read pdf: %w", err)
	}
	switch {
	case n == 0:
		return nil, fmt.Errorf("export: printed pdf has no pages")
	case n == 1:
		return data, nil
	}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &out, []string{"1"}, conf); err != nil {
		return nil, fmt.Errorf("export: trim pdf: %w", err)
	}
	return out.Bytes(), nil
}
