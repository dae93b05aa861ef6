package main

import (
	"io"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"

	"github.com/hupe1980/octogo"
	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/geom"
)

type point [3]float64

func (p point) vec() geom.Vec3 { return geom.V(p[0], p[1], p[2]) }

type boxInput struct {
	Min point `json:"min"`
	Max point `json:"max"`
}

type polyhedronInput struct {
	Vertices []point `json:"vertices"`
	Faces    [][]int `json:"faces"`
}

type segmentInput struct {
	A point `json:"a"`
	B point `json:"b"`
}

// elementInput is one element of an input document. Exactly one geometry
// field must be set.
type elementInput struct {
	ID         string           `json:"id"`
	Box        *boxInput        `json:"box,omitempty"`
	Polyhedron *polyhedronInput `json:"polyhedron,omitempty"`
	Face       []point          `json:"face,omitempty"`
	Segment    *segmentInput    `json:"segment,omitempty"`
}

type document struct {
	Elements []elementInput `json:"elements"`
}

func (e elementInput) solid() (geom.Solid, error) {
	var (
		solid geom.Solid
		n     int
		err   error
	)
	if e.Box != nil {
		solid = geom.NewBox(e.Box.Min.vec(), e.Box.Max.vec())
		n++
	}
	if e.Polyhedron != nil {
		vs := make([]geom.Vec3, len(e.Polyhedron.Vertices))
		for i, p := range e.Polyhedron.Vertices {
			vs[i] = p.vec()
		}
		solid, err = geom.NewConvexPolyhedron(vs, e.Polyhedron.Faces)
		n++
	}
	if e.Face != nil {
		vs := make([]geom.Vec3, len(e.Face))
		for i, p := range e.Face {
			vs[i] = p.vec()
		}
		solid, err = geom.NewFace(vs...)
		n++
	}
	if e.Segment != nil {
		solid = geom.Segment{A: e.Segment.A.vec(), B: e.Segment.B.vec()}
		n++
	}

	switch {
	case err != nil:
		return nil, err
	case n == 0:
		return nil, errors.New("element has no geometry")
	case n > 1:
		return nil, errors.New("element has more than one geometry")
	}
	return solid, nil
}

func decodeItems(r io.Reader) ([]octogo.Item, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.New("decoding input failed").Wrap(err)
	}

	items := make([]octogo.Item, 0, len(doc.Elements))
	for i, e := range doc.Elements {
		id, err := octogo.ParseIdentity(e.ID)
		if err != nil {
			return nil, errors.New("invalid element").
				WithTag("index", i).
				Wrap(err)
		}
		solid, err := e.solid()
		if err != nil {
			return nil, errors.New("invalid element").
				WithTag("index", i).
				WithTag("id", e.ID).
				Wrap(err)
		}
		items = append(items, octogo.Item{Identity: id, Solid: solid})
	}
	return items, nil
}

func readItems(path string) ([]octogo.Item, error) {
	if path == "" || path == "-" {
		return decodeItems(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("opening input failed").Wrap(err)
	}
	defer f.Close()
	return decodeItems(f)
}

// parseWorld parses "minX,minY,minZ,maxX,maxY,maxZ".
func parseWorld(s string) (*cell.Space, error) {
	var v [6]float64
	if err := json.Unmarshal([]byte("["+s+"]"), &v); err != nil {
		return nil, errors.New("invalid world box").
			WithTag("world", s).
			Wrap(err)
	}
	return cell.NewSpace(geom.NewBox(geom.V(v[0], v[1], v[2]), geom.V(v[3], v[4], v[5])))
}
