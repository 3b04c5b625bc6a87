// Command browserkit is a small command-line driver over the browserkit
// library: it issues a request (followed, for click and submit, by the
// navigation from the returned page) and prints the final status, headers
// and body, useful for ad-hoc inspection of the state machine.
package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/jawher/mow.cli"

	"browserkit"
)

func main() {
	app := cli.App("browserkit", "A headless programmatic browser")

	userAgent := app.StringOpt("user-agent", "browserkit", "User-Agent header sent with every request")
	maxRedirects := app.IntOpt("max-redirects", -1, "maximum redirect chain length, -1 for unbounded")
	noRedirects := app.BoolOpt("no-follow-redirects", false, "disable automatic redirect following")
	noMetaRefresh := app.BoolOpt("no-follow-meta-refresh", false, "disable automatic meta-refresh following")
	verbose := app.BoolOpt("v verbose", false, "log every dispatched hop to stderr")

	newBrowser := func() *browserkit.Browser {
		config := browserkit.NewConfig()
		config.SetUserAgent(*userAgent)
		config.MaxRedirects = *maxRedirects
		config.FollowRedirects = !*noRedirects
		config.FollowMetaRefresh = !*noMetaRefresh

		if *verbose {
			config.SetLogger()
		}

		return browserkit.NewBrowser(config, nil, nil)
	}

	app.Command("get", "issue a GET request and print the response", func(cmd *cli.Cmd) {
		url := cmd.StringArg("URL", "", "absolute URL to request")

		cmd.Action = func() {
			b := newBrowser()

			if _, err := b.Request("GET", *url, nil, nil, nil, nil, true); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			printResponse(b)
		}
	})

	app.Command("post", "issue a POST request with form fields and print the response", func(cmd *cli.Cmd) {
		url := cmd.StringArg("URL", "", "absolute URL to request")
		fields := cmd.StringsOpt("d data", nil, "a name=value form field, repeatable")

		cmd.Action = func() {
			b := newBrowser()

			if _, err := b.Request("POST", *url, parseFields(*fields), nil, nil, nil, true); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			printResponse(b)
		}
	})

	app.Command("click", "click the first link matching TEXT on the last response and print the result", func(cmd *cli.Cmd) {
		url := cmd.StringArg("URL", "", "absolute URL to request first")
		text := cmd.StringArg("TEXT", "", "link text, alt or id to match")

		cmd.Action = func() {
			b := newBrowser()

			if _, err := b.Request("GET", *url, nil, nil, nil, nil, true); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			if _, err := b.ClickLink(*text); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			printResponse(b)
		}
	})

	app.Command("submit", "submit the form owning the submit button matching BUTTON and print the result", func(cmd *cli.Cmd) {
		url := cmd.StringArg("URL", "", "absolute URL to request first")
		button := cmd.StringArg("BUTTON", "", "submit button text or value to match")
		fields := cmd.StringsOpt("d data", nil, "a name=value form field override, repeatable")

		cmd.Action = func() {
			b := newBrowser()

			if _, err := b.Request("GET", *url, nil, nil, nil, nil, true); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			if _, err := b.SubmitForm(*button, parseFields(*fields), "", nil); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			printResponse(b)
		}
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ------------------------------------------------------------------------

func parseFields(raw []string) map[string][]string {
	fields := map[string][]string{}

	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}

		fields[parts[0]] = append(fields[parts[0]], parts[1])
	}

	return fields
}

// ------------------------------------------------------------------------

func printResponse(b *browserkit.Browser) {
	resp := b.Response()

	fmt.Printf("%d %s\n", resp.Status, b.CurrentURI().String())

	for name, values := range resp.Headers {
		for _, v := range values {
			fmt.Printf("%s: %s\n", name, v)
		}
	}

	fmt.Println()
	fmt.Println(string(resp.Content))
}
