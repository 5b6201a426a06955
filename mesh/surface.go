package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshadapt/types"
)

// Surface is a triangulated boundary representation
type Surface struct {
	Vertices  []r3.Vec
	Triangles [][3]int // 0-based vertex indices
	Tags      []int    // Optional per face region tag, nil when absent
}

// Bounds returns the axis aligned bounding box of the surface vertices
func (s *Surface) Bounds() (lo, hi r3.Vec) {
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range s.Vertices {
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return
}

// ReadSurface reads a triangulated surface, choosing the reader by file extension
func ReadSurface(path string) (*Surface, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ply":
		return ReadPLY(path)
	case ".stl":
		return ReadSTL(path)
	case ".mesh":
		m, err := ReadMedit(path)
		if err != nil {
			return nil, err
		}
		return SurfaceFromMesh(m), nil
	default:
		return nil, &types.FormatError{Path: path, Err: fmt.Errorf("unsupported surface format %q", filepath.Ext(path))}
	}
}

// SurfaceFromMesh returns the triangles of m, or the skin of its tetrahedra when it has no triangles.
// Vertex indices are those of m.
func SurfaceFromMesh(m *Mesh) *Surface {
	s := &Surface{Vertices: make([]r3.Vec, m.NumVertices)}
	for i, v := range m.Vertices {
		s.Vertices[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	if m.Count(Triangle) > 0 {
		for i, et := range m.ElementTypes {
			if et == Triangle {
				v := m.EtoV[i]
				s.Triangles = append(s.Triangles, [3]int{v[0], v[1], v[2]})
				s.Tags = append(s.Tags, m.ElementTags[i])
			}
		}
		return s
	}
	s.Triangles, s.Tags = m.Skin()
	return s
}

// ReadSTL reads an ASCII or binary STL file and welds coincident vertices
func ReadSTL(path string) (*Surface, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, &types.FormatError{Path: path, Err: err}
	}
	s := &Surface{}
	index := make(map[stl.Vec3]int)
	for _, tri := range solid.Triangles {
		var t [3]int
		for j, v := range tri.Vertices {
			id, ok := index[v]
			if !ok {
				id = len(s.Vertices)
				index[v] = id
				s.Vertices = append(s.Vertices, r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
			}
			t[j] = id
		}
		s.Triangles = append(s.Triangles, t)
	}
	return s, nil
}

// WriteSTL writes s as a binary STL file
func WriteSTL(path string, s *Surface) error {
	solid := &stl.Solid{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	for _, t := range s.Triangles {
		var tri stl.Triangle
		for j, id := range t {
			v := s.Vertices[id]
			tri.Vertices[j] = stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
		}
		a, b, c := s.Vertices[t[0]], s.Vertices[t[1]], s.Vertices[t[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if l := r3.Norm(n); l > 0 {
			n = r3.Scale(1/l, n)
		}
		tri.Normal = stl.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}
		solid.Triangles = append(solid.Triangles, tri)
	}
	return solid.WriteFile(path)
}

type plyProperty struct {
	name      string
	kind      string // scalar type, or the item type of a list
	countKind string // list count type, empty for scalars
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

// Longest accepted PLY list, polygons beyond this are taken as corrupt input
const maxPLYListLen = 1 << 16

// ReadPLY reads an ascii or binary PLY file. Polygon faces are fan triangulated.
func ReadPLY(path string) (*Surface, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	s, err := readPLY(bufio.NewReader(file))
	if err != nil {
		return nil, &types.FormatError{Path: path, Err: err}
	}
	return s, nil
}

func readPLY(r *bufio.Reader) (*Surface, error) {
	format, elements, err := readPLYHeader(r)
	if err != nil {
		return nil, err
	}
	var values plyReader
	switch format {
	case "ascii":
		values = &plyASCII{r: r}
	case "binary_little_endian":
		values = &plyBinary{r: r, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &plyBinary{r: r, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("unsupported PLY format %q", format)
	}

	s := &Surface{}
	for _, el := range elements {
		for i := 0; i < el.count; i++ {
			var (
				xyz   [3]float64
				poly  []int
				found int
			)
			for _, p := range el.props {
				if p.countKind != "" {
					n, err := values.value(p.countKind)
					if err != nil {
						return nil, fmt.Errorf("reading %s %d: %w", el.name, i, err)
					}
					if n < 0 || n > maxPLYListLen || n != math.Trunc(n) {
						return nil, fmt.Errorf("reading %s %d: invalid list length %v", el.name, i, n)
					}
					items := make([]int, int(n))
					for j := range items {
						f, err := values.value(p.kind)
						if err != nil {
							return nil, fmt.Errorf("reading %s %d: %w", el.name, i, err)
						}
						items[j] = int(f)
					}
					if el.name == "face" && (p.name == "vertex_indices" || p.name == "vertex_index") {
						poly = items
					}
					continue
				}
				f, err := values.value(p.kind)
				if err != nil {
					return nil, fmt.Errorf("reading %s %d: %w", el.name, i, err)
				}
				if el.name == "vertex" {
					switch p.name {
					case "x":
						xyz[0] = f
						found++
					case "y":
						xyz[1] = f
						found++
					case "z":
						xyz[2] = f
						found++
					}
				}
			}
			switch el.name {
			case "vertex":
				if found != 3 {
					return nil, fmt.Errorf("vertex element lacks x, y, z properties")
				}
				s.Vertices = append(s.Vertices, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
			case "face":
				if len(poly) < 3 {
					return nil, fmt.Errorf("face %d has %d vertices", i, len(poly))
				}
				for j := 1; j+1 < len(poly); j++ {
					s.Triangles = append(s.Triangles, [3]int{poly[0], poly[j], poly[j+1]})
				}
			}
		}
	}
	for i, t := range s.Triangles {
		for _, v := range t {
			if v < 0 || v >= len(s.Vertices) {
				return nil, fmt.Errorf("face %d references vertex %d, surface has %d vertices", i, v, len(s.Vertices))
			}
		}
	}
	return s, nil
}

func readPLYHeader(r *bufio.Reader) (format string, elements []*plyElement, err error) {
	readLine := func() (string, error) {
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", fmt.Errorf("unexpected EOF reading PLY header")
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	line, err := readLine()
	if err != nil {
		return
	}
	if strings.TrimSpace(line) != "ply" {
		return "", nil, fmt.Errorf("missing ply magic")
	}
	for {
		if line, err = readLine(); err != nil {
			return
		}
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "format":
			if len(f) < 2 {
				return "", nil, fmt.Errorf("malformed format line %q", line)
			}
			format = f[1]
		case "comment", "obj_info":
		case "element":
			if len(f) != 3 {
				return "", nil, fmt.Errorf("malformed element line %q", line)
			}
			n, err := strconv.Atoi(f[2])
			if err != nil {
				return "", nil, fmt.Errorf("malformed element count %q", line)
			}
			elements = append(elements, &plyElement{name: f[1], count: n})
		case "property":
			if len(elements) == 0 {
				return "", nil, fmt.Errorf("property before element: %q", line)
			}
			el := elements[len(elements)-1]
			switch {
			case len(f) == 5 && f[1] == "list":
				el.props = append(el.props, plyProperty{name: f[4], kind: f[3], countKind: f[2]})
			case len(f) == 3:
				el.props = append(el.props, plyProperty{name: f[2], kind: f[1]})
			default:
				return "", nil, fmt.Errorf("malformed property line %q", line)
			}
		case "end_header":
			if format == "" {
				return "", nil, fmt.Errorf("missing format line")
			}
			return format, elements, nil
		default:
			return "", nil, fmt.Errorf("unknown PLY header keyword %q", f[0])
		}
	}
}

type plyReader interface {
	value(kind string) (float64, error)
}

type plyASCII struct {
	r      *bufio.Reader
	fields []string
}

func (p *plyASCII) value(_ string) (float64, error) {
	for len(p.fields) == 0 {
		line, err := p.r.ReadString('\n')
		if err != nil && line == "" {
			return 0, io.ErrUnexpectedEOF
		}
		p.fields = strings.Fields(line)
	}
	tok := p.fields[0]
	p.fields = p.fields[1:]
	return strconv.ParseFloat(tok, 64)
}

type plyBinary struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (p *plyBinary) value(kind string) (float64, error) {
	var size int
	switch kind {
	case "char", "int8", "uchar", "uint8":
		size = 1
	case "short", "int16", "ushort", "uint16":
		size = 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		size = 4
	case "double", "float64":
		size = 8
	default:
		return 0, fmt.Errorf("unknown PLY type %q", kind)
	}
	b := p.buf[:size]
	if _, err := io.ReadFull(p.r, b); err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	switch kind {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(p.order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(p.order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(p.order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(p.order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(p.order.Uint32(b))), nil
	default:
		return math.Float64frombits(p.order.Uint64(b)), nil
	}
}
