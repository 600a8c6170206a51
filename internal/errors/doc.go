// Package errors provides coded, actionable errors for the signalshell
// CLI.
//
// Every failure the CLI reports to a user maps to a registered code
// (e.g. "E121") carrying a short message, a longer explanation and a
// documentation link. Call sites add what they know:
//
//	err := errors.New("E121").
//	    WithDetail(`proxy rule "/api" has no target`).
//	    WithLocation("signalshell.yaml", 12, 0).
//	    WithSuggestion(`Set target: "http://127.0.0.1:5000"`)
//
//	fmt.Print(err.Format())
//	// ERROR E121: Invalid proxy rule
//	//
//	//   signalshell.yaml:12
//	//
//	//   proxy rule "/api" has no target
//	//
//	//   Hint: Set target: "http://127.0.0.1:5000"
//
// # Code ranges
//
//	E100-E119  route table
//	E120-E139  configuration and dev proxy
//	E140-E159  build and publish
package errors
