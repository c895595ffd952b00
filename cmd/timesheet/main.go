// Command timesheet submits work and leave entries from the terminal.
//
//	timesheet login --email you@enoahisolution.com
//	timesheet status --date 2025-03-10
//	timesheet submit work --date 2025-03-10 \
//	    --row "Project 1|Build reports|Billable|API work|5" \
//	    --row "Project 2|Code review|Non-Billable||3"
//	timesheet submit leave --type "Sick Leave" --from 2025-03-11 --description "Fever and cold"
package main

import "github.com/warp/timesheet/cli"

func main() {
	cli.Execute()
}
