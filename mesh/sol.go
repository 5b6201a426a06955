package mesh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

// WriteSolFile writes a scalar field at vertices in Medit .sol format. The field must hold
// exactly nVertices values; nothing is written otherwise.
func WriteSolFile(path string, nVertices int, field []float64) error {
	if len(field) != nVertices {
		return &types.FormatError{Path: path,
			Err: fmt.Errorf("field has %d values, mesh has %d vertices", len(field), nVertices)}
	}
	if i := utils.FirstNonFinite(field); i >= 0 {
		return &types.FormatError{Path: path,
			Err: fmt.Errorf("non finite value %v at vertex %d", field[i], i+1)}
	}
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		fmt.Fprintf(w, "MeshVersionFormatted 2\n\nDimension 3\n\nSolAtVertices\n%d\n1 1\n\n", nVertices)
		for _, f := range field {
			if _, err := fmt.Fprintln(w, strconv.FormatFloat(f, 'g', -1, 64)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "\nEnd\n")
		return err
	})
}

// ReadSolFile reads a single scalar field at vertices from a Medit .sol file
func ReadSolFile(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tz := newTokenizer(file)
	fail := func(err error) ([]float64, error) {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &types.FormatError{Path: path, Line: tz.line, Err: err}
	}
	var field []float64
	haveField := false
	for {
		keyword, err := tz.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}
		switch keyword {
		case "MeshVersionFormatted", "Dimension":
			if _, err = tz.nextInt(); err != nil {
				return fail(fmt.Errorf("reading %s: %w", keyword, err))
			}
		case "SolAtVertices":
			n, err := tz.nextInt()
			if err != nil {
				return fail(fmt.Errorf("reading value count: %w", err))
			}
			nsol, err := tz.nextInt()
			if err != nil {
				return fail(fmt.Errorf("reading field count: %w", err))
			}
			if nsol != 1 {
				return fail(fmt.Errorf("expected 1 field, got %d", nsol))
			}
			kind, err := tz.nextInt()
			if err != nil {
				return fail(fmt.Errorf("reading field type: %w", err))
			}
			if kind != 1 {
				return fail(fmt.Errorf("expected scalar field type 1, got %d", kind))
			}
			if n < 0 {
				return fail(fmt.Errorf("negative value count %d", n))
			}
			// The count is not trusted for allocation, values are read until it is reached
			field = make([]float64, 0, min(n, 1<<20))
			for i := 0; i < n; i++ {
				f, err := tz.nextFloat()
				if err != nil {
					return fail(fmt.Errorf("reading value %d of %d: %w", i+1, n, err))
				}
				field = append(field, f)
			}
			haveField = true
		case "End":
			if !haveField {
				return fail(fmt.Errorf("no SolAtVertices section"))
			}
			return field, nil
		default:
			return fail(fmt.Errorf("unexpected token %q", keyword))
		}
	}
	if !haveField {
		return fail(fmt.Errorf("no SolAtVertices section"))
	}
	return field, nil
}
