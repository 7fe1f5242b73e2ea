package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// verifyPDF re-reads the PDF at path and checks that it has want pages, each
// with a non-empty content stream.
func verifyPDF(path string, want int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	ctx, err := pdfcpu.Read(f, model.NewDefaultConfiguration())
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("page count: %w", err)
	}
	if ctx.PageCount != want {
		return fmt.Errorf("got %d pages, want %d", ctx.PageCount, want)
	}

	for i := 1; i <= ctx.PageCount; i++ {
		pageDict, _, _, err := ctx.PageDict(i, false)
		if err != nil {
			return fmt.Errorf("page %d dict: %w", i, err)
		}
		obj, found := pageDict.Find("Contents")
		if !found {
			return fmt.Errorf("page %d has no content", i)
		}
		data, err := contentStream(ctx, obj)
		if err != nil {
			return fmt.Errorf("page %d content stream: %w", i, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return fmt.Errorf("page %d is empty", i)
		}
	}
	return nil
}

// contentStream dereferences and decodes a Contents entry, which may be a
// single stream or an array of streams.
func contentStream(ctx *model.Context, obj types.Object) ([]byte, error) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case types.StreamDict:
		if err := v.Decode(); err != nil {
			return nil, fmt.Errorf("decode stream: %w", err)
		}
		return v.Content, nil
	case types.Array:
		var buf bytes.Buffer
		for _, item := range v {
			data, err := contentStream(ctx, item)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unexpected Contents type: %T", obj)
}
