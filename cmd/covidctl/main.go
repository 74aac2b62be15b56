// Command covidctl loads the COVID feeds once and prints a dashboard view to
// the terminal. It reads the same environment as the dashboard service.
//
// Usage:
//
//	covidctl regions
//	covidctl cases --region Texas --window last_14
//	covidctl totals --metric total_deaths --json
//	covidctl top -n 10 --date 2021-06-30
//	covidctl vaccinations --policy latest
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
