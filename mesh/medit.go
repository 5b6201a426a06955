package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

// Sections we do not keep, with the number of tokens per entry including the reference
var skippedSections = map[string]int{
	"Edges":                  3,
	"Corners":                1,
	"RequiredVertices":       1,
	"Ridges":                 1,
	"RequiredEdges":          1,
	"RequiredTriangles":      1,
	"RequiredTetrahedra":     1,
	"RequiredQuadrilaterals": 1,
	"Normals":                3,
	"NormalAtVertices":       2,
	"Tangents":               3,
	"TangentAtVertices":      2,
	"Quadrilaterals":         5,
	"Hexahedra":              9,
	"Prisms":                 7,
}

// tokenizer streams whitespace separated tokens, dropping # comments
type tokenizer struct {
	scanner *bufio.Scanner
	fields  []string
	line    int
}

func newTokenizer(r io.Reader) *tokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	return &tokenizer{scanner: scanner}
}

func (t *tokenizer) next() (string, error) {
	for len(t.fields) == 0 {
		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		t.line++
		line := t.scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		t.fields = strings.Fields(line)
	}
	tok := t.fields[0]
	t.fields = t.fields[1:]
	return tok, nil
}

func (t *tokenizer) nextInt() (int, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

func (t *tokenizer) nextFloat() (float64, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(tok, 64)
}

// ReadMedit reads a Medit ASCII .mesh file. Vertex indices are converted to 0-based.
func ReadMedit(path string) (*Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	m, line, err := readMedit(file)
	if err != nil {
		return nil, &types.FormatError{Path: path, Line: line, Err: err}
	}
	return m, nil
}

func readMedit(r io.Reader) (*Mesh, int, error) {
	var (
		m    = NewMesh()
		tz   = newTokenizer(r)
		seen bool
	)
	fail := func(err error) (*Mesh, int, error) {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, tz.line, err
	}
	for {
		keyword, err := tz.next()
		if errors.Is(err, io.EOF) {
			if !seen {
				return nil, tz.line, fmt.Errorf("missing MeshVersionFormatted header")
			}
			// End is optional in practice
			break
		}
		if err != nil {
			return fail(err)
		}
		if !seen && keyword != "MeshVersionFormatted" {
			return nil, tz.line, fmt.Errorf("expected MeshVersionFormatted, got %q", keyword)
		}
		switch keyword {
		case "MeshVersionFormatted":
			seen = true
			if _, err = tz.nextInt(); err != nil {
				return fail(fmt.Errorf("reading mesh version: %w", err))
			}
		case "Dimension":
			dim, err := tz.nextInt()
			if err != nil {
				return fail(fmt.Errorf("reading dimension: %w", err))
			}
			if dim != 3 {
				return nil, tz.line, fmt.Errorf("unsupported dimension %d", dim)
			}
		case "Vertices":
			if err = readVertices(tz, m); err != nil {
				return fail(err)
			}
		case "Triangles":
			if err = readElements(tz, m, Triangle); err != nil {
				return fail(err)
			}
		case "Tetrahedra":
			if err = readElements(tz, m, Tet); err != nil {
				return fail(err)
			}
		case "End":
			if err = m.Validate(); err != nil {
				return nil, tz.line, err
			}
			return m, 0, nil
		default:
			arity, ok := skippedSections[keyword]
			if !ok {
				return nil, tz.line, fmt.Errorf("unknown section %q", keyword)
			}
			n, err := tz.nextInt()
			if err != nil {
				return fail(fmt.Errorf("reading %s count: %w", keyword, err))
			}
			for i := 0; i < n*arity; i++ {
				if _, err = tz.next(); err != nil {
					return fail(fmt.Errorf("unexpected EOF reading %s", keyword))
				}
			}
		}
	}
	if err := m.Validate(); err != nil {
		return nil, tz.line, err
	}
	return m, 0, nil
}

func readVertices(tz *tokenizer, m *Mesh) error {
	n, err := tz.nextInt()
	if err != nil {
		return fmt.Errorf("reading vertex count: %w", err)
	}
	for i := 0; i < n; i++ {
		var xyz [3]float64
		for j := range xyz {
			if xyz[j], err = tz.nextFloat(); err != nil {
				return fmt.Errorf("reading vertex %d: %w", i+1, err)
			}
		}
		ref, err := tz.nextInt()
		if err != nil {
			return fmt.Errorf("reading vertex %d reference: %w", i+1, err)
		}
		m.AddVertex(xyz[0], xyz[1], xyz[2], ref)
	}
	return nil
}

func readElements(tz *tokenizer, m *Mesh, etype ElementType) error {
	n, err := tz.nextInt()
	if err != nil {
		return fmt.Errorf("reading %s count: %w", etype, err)
	}
	nv := etype.NumVertices()
	verts := make([]int, nv)
	for i := 0; i < n; i++ {
		for j := 0; j < nv; j++ {
			v, err := tz.nextInt()
			if err != nil {
				return fmt.Errorf("reading %s %d: %w", etype, i+1, err)
			}
			verts[j] = v - 1 // Medit indices are 1-based
		}
		ref, err := tz.nextInt()
		if err != nil {
			return fmt.Errorf("reading %s %d reference: %w", etype, i+1, err)
		}
		m.AddElement(etype, verts, ref)
	}
	return nil
}

// WriteMedit writes m as a Medit ASCII .mesh file, all-or-nothing
func WriteMedit(path string, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return &types.GeometryError{Op: "write mesh", Path: path, Err: err}
	}
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return writeMedit(w, m)
	})
}

func writeMedit(w io.Writer, m *Mesh) (err error) {
	bw := bufio.NewWriter(w)
	ff := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

	fmt.Fprintf(bw, "MeshVersionFormatted 2\n\nDimension 3\n\n")
	fmt.Fprintf(bw, "Vertices\n%d\n", m.NumVertices)
	for i, v := range m.Vertices {
		fmt.Fprintf(bw, "%s %s %s %d\n", ff(v[0]), ff(v[1]), ff(v[2]), m.vertexRef(i))
	}
	for _, etype := range []ElementType{Triangle, Tet} {
		n := m.Count(etype)
		if n == 0 {
			continue
		}
		if etype == Triangle {
			fmt.Fprintf(bw, "\nTriangles\n%d\n", n)
		} else {
			fmt.Fprintf(bw, "\nTetrahedra\n%d\n", n)
		}
		for i, et := range m.ElementTypes {
			if et != etype {
				continue
			}
			for _, v := range m.EtoV[i] {
				fmt.Fprintf(bw, "%d ", v+1)
			}
			fmt.Fprintf(bw, "%d\n", m.ElementTags[i])
		}
	}
	fmt.Fprintf(bw, "\nEnd\n")
	return bw.Flush()
}

// CountVertices reads only the header and vertex count of a Medit file
func CountVertices(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	tz := newTokenizer(file)
	for {
		tok, err := tz.next()
		if err != nil {
			return 0, &types.FormatError{Path: path, Line: tz.line, Err: fmt.Errorf("no Vertices section: %w", err)}
		}
		if tok == "Vertices" {
			n, err := tz.nextInt()
			if err != nil {
				return 0, &types.FormatError{Path: path, Line: tz.line, Err: err}
			}
			return n, nil
		}
	}
}
