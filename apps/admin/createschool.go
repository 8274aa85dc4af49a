package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/tenant"
)

func (cli *commandLine) createSchool(name, adminEmail, adminFirst, adminLast string) error {
	ctx := context.Background()

	sch, err := cli.tenantSvc.Create(ctx, tenant.NewSchool{
		Name:           name,
		AdminEmail:     adminEmail,
		AdminFirstName: adminFirst,
		AdminLastName:  adminLast,
	})
	if err != nil {
		return err
	}

	fmt.Printf("school %q created (partition %q)\n", sch.Name, sch.SchemaName)
	if !sch.IsPublic() {
		fmt.Printf("admin %s provisioned with the default password; rotate it on first login\n", sch.AdminEmail)
	}
	return nil
}
