/*
Package ports defines the driven ports (interfaces) of the rentdesk wizard engine.

The engine consumes these services but never implements them. Adapters under
pkg/adapters provide a REST client, an in-memory backend and a Redis cache.

# Key Interfaces

  - Directory: entity search for the selection pickers (customers, vehicles, inspectors).
  - Catalog: reference option lists (colors, makes, models by make).
  - RecordService: fetch, create and update of composite records.
  - RefreshFunc: list-refresh callback invoked once after a successful submission.
*/
package ports
