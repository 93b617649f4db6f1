package main

import "fmt"

func (cli *commandLine) createSuperadmin(name, email, pwd string) error {
	usr, err := cli.usrSvc.CreateSuperadmin(name, email, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("superadmin %q (%s) created\n", usr.Name, usr.Email)
	return nil
}
