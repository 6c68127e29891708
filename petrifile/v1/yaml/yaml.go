package yaml

import (
	"context"
	"io"

	pf "github.com/jt05610/tapn/petrifile"
	"github.com/jt05610/tapn/petrifile/v1"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var _ pf.Service = (*Service)(nil)

type Service struct {
}

func (s *Service) Load(_ context.Context, r io.Reader) (*pf.Model, error) {
	var f petrifile.Petrifile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode petrifile")
	}
	return f.Model()
}

func (s *Service) Save(_ context.Context, w io.Writer, m *pf.Model) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(petrifile.FromModel(m)); err != nil {
		return errors.Wrap(err, "encode petrifile")
	}
	return enc.Close()
}

func (s *Service) Version() pf.Version {
	return pf.V1
}
