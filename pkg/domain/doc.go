/*
Package domain contains the core types of the rentdesk wizard engine.

It defines the flat FieldSet shared by every step of a wizard session, the
Step descriptors and their validators, the read-only State snapshot handed to
shells, the entities offered by search pickers, and the error and event
vocabulary. The package has no I/O and no third-party dependencies.

# Key Entities

  - FieldSet: the flat key/value record backing one wizard session.
  - Step: an ordered page of a wizard with its owned fields and validator.
  - State: a snapshot of a session (active step, fields, touched, errors).
  - Envelope: the {success, data | error} shape of the back-office API.
  - Payload: the write-only, server-shaped record built at submit time.
*/
package domain
