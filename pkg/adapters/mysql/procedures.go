package mysql

import (
	"context"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/symexport/pkg/core/failure"
)

// LoadProcedures queues the configured scripts in list order. Each script
// is cut at the separator token; chunks are trimmed and blank ones dropped.
func (b *Backend) LoadProcedures(ctx context.Context) error {
	for _, path := range b.settings.Procedures {
		if err := ctx.Err(); err != nil {
			return err
		}
		script, err := b.readScript(path)
		if err != nil {
			return failure.IO("read", path, err)
		}
		chunks := SplitScript(string(script), b.settings.ProcedureSeparator)
		b.batch = append(b.batch, chunks...)

		log.Debug().Str("script", path).Int("statements", len(chunks)).Msg("procedure script queued")
	}
	return nil
}

func (b *Backend) readScript(path string) ([]byte, error) {
	if b.scripts != nil {
		return fs.ReadFile(b.scripts, path)
	}
	return os.ReadFile(path)
}

// SplitScript cuts script at every occurrence of sep and returns the
// non-blank, trimmed pieces in order.
func SplitScript(script, sep string) []string {
	var out []string
	for _, chunk := range strings.Split(script, sep) {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}
