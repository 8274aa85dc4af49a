package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	conf      *core.Config
	usrSvc    *user.Service
	tenantSvc *tenant.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createschool -name NAME -email ADMIN_EMAIL [-firstname FIRST] [-lastname LAST] - register a school and bootstrap its admin")
	fmt.Println("  resetpassword -email EMAIL - reset a user's password (prompted)")
	fmt.Println("  migrate - bring the shared tables and every tenant partition up to date")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSchoolCmd := flag.NewFlagSet("createschool", flag.ExitOnError)
	schoolName := createSchoolCmd.String("name", "", "The school's name; identifies its partition.")
	schoolAdminEmail := createSchoolCmd.String("email", "", "The bootstrap admin's email.")
	schoolAdminFirst := createSchoolCmd.String("firstname", "", "The bootstrap admin's first name.")
	schoolAdminLast := createSchoolCmd.String("lastname", "", "The bootstrap admin's last name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "createschool":
		if err := createSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *schoolName == "" || *schoolAdminEmail == "" {
			createSchoolCmd.Usage()
			return errHelp
		}
		return cli.createSchool(*schoolName, *schoolAdminEmail, *schoolAdminFirst, *schoolAdminLast)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, string(pwd))
	case "migrate":
		return cli.migrate()
	default:
		cli.printUsage()
		return errHelp
	}
}
