package suite

import (
	"context"
	"io"

	"github.com/aristath/rgate/internal/backend"
)

// R runs the FastR interactive shell with args.
func (s *Suite) R(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	return s.shell(ctx, backend.RCommandClass, args, in, out)
}

// Rscript runs an R script file with the FastR Rscript front end.
func (s *Suite) Rscript(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	return s.shell(ctx, backend.RscriptCommandClass, args, in, out)
}

func (s *Suite) shell(ctx context.Context, class string, args []string, in io.Reader, out io.Writer) error {
	a, err := s.fastR(ctx, nil)
	if err != nil {
		return err
	}
	_, err = a.Shell(ctx, class, args, in, out)
	return err
}
