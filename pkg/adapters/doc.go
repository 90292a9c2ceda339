/*
Package adapters defines the export backend contract and the registry that
builds backends by name.

# Architecture

	┌─────────────────────────────────────────┐
	│    export.Driver                        │
	│  - schema.Schema / schema.Table         │
	│  - Run{SourceID, Sources}               │
	└─────────────────┬───────────────────────┘
	                  │
	┌─────────────────▼───────────────────────┐
	│  Backend interface                      │  ← pkg/adapters/adapter.go
	│    Begin / WriteManifest / WriteTable   │
	│  optional: ProcedureLoader,             │
	│    SchemaEmitter, Committer             │
	└─────────────────┬───────────────────────┘
	                  │
	        ┌─────────┼─────────┐
	        │         │         │
	┌───────▼────┐ ┌──▼──────┐ ┌▼────────┐
	│ csv        │ │ mysql   │ │ xlsx    │
	└────────────┘ └─────────┘ └─────────┘

Each backend registers itself in init, so importing the package for side
effects is enough:

	import (
	    "github.com/ruslano69/symexport/pkg/adapters"
	    _ "github.com/ruslano69/symexport/pkg/adapters/csv"
	    _ "github.com/ruslano69/symexport/pkg/adapters/mysql"
	)

	backends, err := adapters.NewAll([]string{"csv", "mysql"}, cfg)

# Source ids

Every run carries a source id. Run 0 creates the outputs and the manifest
table that maps ids to source names; later runs append rows tagged with
their own id.
*/
package adapters
