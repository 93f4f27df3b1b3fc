// Package schema provides the declarative step validators of the wizard engine.
//
// A Schema owns a subset of the FieldSet keys of one step and lists, by
// name, the keys of earlier steps it reads. Validators only ever see a View
// restricted to those keys, so a step cannot inspect fields of steps the user
// has not visited yet unless the dependency is declared.
//
// Basic usage:
//
//	details := schema.New("details").
//	    Field("startDate", schema.Required(), schema.Date(), schema.NotPast()).
//	    Field("endDate", schema.Required(), schema.Date(), schema.After("startDate")).
//	    Union("durationType", map[string]*schema.Schema{
//	        "duration": schema.New("duration").Field("durationInDays", schema.Required(), schema.MinInt(1)),
//	        "fees":     schema.New("fees").Field("totalFees", schema.Required(), schema.Positive()),
//	    })
//
//	errs := details.Validate(fs, time.Now())
//	if len(errs) > 0 {
//	    // errs maps field name to message
//	}
//
// Cross-field constraints are attached with Check and are reported against the
// field the user is expected to fix. Validators of several steps compose into
// one aggregate with Compose.
//
// Validation is synchronous and never performs I/O.
package schema
