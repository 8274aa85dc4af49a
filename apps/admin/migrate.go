package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/storage/database"
)

// migrate brings the shared tables up to date, then every registered tenant
// partition.
func (cli *commandLine) migrate() error {
	if err := database.Migrate(cli.db.DB); err != nil {
		return err
	}

	schools, err := cli.tenantSvc.QueryAll(context.Background())
	if err != nil {
		return err
	}
	for _, sch := range schools {
		if sch.IsPublic() {
			continue
		}
		if err := database.MigrateTenant(cli.db.DB, sch.SchemaName); err != nil {
			return err
		}
		fmt.Printf("partition %q migrated\n", sch.SchemaName)
	}
	return nil
}
