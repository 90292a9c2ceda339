// symexport exports symbol tables into delimited text, a MySQL database and
// an XLSX workbook.
//
// Usage:
//
//	# Export every source in one go; source ids follow argument order
//	symexport export --config symexport.yaml --schema schema.yaml a.yaml b.yaml
//
//	# Export a single source as run N
//	symexport run --config symexport.yaml --schema schema.yaml --source-id 1 b.yaml
//
//	# Print the first-run MySQL batch without executing it
//	symexport ddl --config symexport.yaml --schema schema.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Backends register themselves with the factory.
	_ "github.com/ruslano69/symexport/pkg/adapters/csv"
	_ "github.com/ruslano69/symexport/pkg/adapters/mysql"
	_ "github.com/ruslano69/symexport/pkg/adapters/xlsx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
