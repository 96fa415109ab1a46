package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS

// GetFS returns the migrations for the given database driver
func GetFS(driver string) fs.FS {
	dir := "sqlite"
	if driver == "postgres" || driver == "pgx" {
		dir = "postgres"
	}
	sub, err := fs.Sub(Files, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
