/*
Package rentdesk is the wizard engine of a vehicle rental back-office.

Composite records (rental contracts, fleet vehicles) are edited through
multi-step wizards. Each step validates its own slice of a single flat field
set; selecting an entity fills the related read-only fields; derived values
such as rental days or the suggested total follow their inputs; cascading
option lists (make -> model) are fetched with last-request-wins semantics.
The final step builds a typed payload and hands it to the record service.

# Usage

	backend := memory.NewDefault()
	eng, err := rentdesk.New(backend, rentdesk.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	s, err := eng.Open(ctx, contract.Name, "") // "" opens a create session
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Search(ctx, contract.SelectedCustomerID, "ana"); err != nil {
		log.Fatal(err)
	}
	_ = s.Select(ctx, contract.SelectedCustomerID, "c-1001")
	if err := s.Next(ctx); err != nil {
		var verr *domain.StepValidationError
		if errors.As(err, &verr) {
			// show verr.Fields next to the inputs
		}
	}

# Shells

The same sessions are driven by a JSON API (pkg/adapters/http), MCP tools
(pkg/adapters/mcp) and a line-oriented terminal (pkg/runner). Live sessions
are tracked by pkg/session and never persisted.
*/
package rentdesk
