/*
Package runner implements the prompt loop that drives a wizard session from
a terminal or from a script.

A Runner reads one command per line through an IOHandler, applies it to the
session and shows the active step again:

	customerName=Ana         write a field
	:search selectedCustomerId ana
	:pick selectedCustomerId 1
	:next  :back  :jump 0  :submit  :quit

TextHandler renders the step for a human, with colour when the output is a
terminal and a markdown review on the last step. JSONHandler emits one JSON
message per line for automation.

# Usage

	r := runner.New(runner.WithSignals(true))
	if err := r.Run(ctx, sess); errors.Is(err, runner.ErrAbandoned) {
		fmt.Println("nothing saved")
	}
*/
package runner
