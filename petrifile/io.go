// Package petrifile defines the file formats nets are stored in.
package petrifile

import (
	"context"
	"io"

	"github.com/jt05610/tapn"
	"github.com/jt05610/tapn/query"
)

// Model is everything a petrifile describes.
type Model struct {
	Net     *tapn.Net
	Initial *tapn.Marking
	Queries []*query.Query
}

type Service interface {
	Load(ctx context.Context, r io.Reader) (*Model, error)
	Save(ctx context.Context, w io.Writer, m *Model) error
	Version() Version
}

type Version string

const (
	V1 Version = "v1"
)
