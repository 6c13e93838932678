// Package classifier maps a raw operation failure to a failure category and
// a retry verdict.
//
// Classification walks an ordered pattern table (first match wins). A
// pattern matches on the error message, on a status code exposed through
// StatusCoder, or both. When nothing in the table matches, a second pass
// looks at the error's dynamic type and any attached stack trace. Whatever
// is still unclassified ends up as UNKNOWN and is treated as transient.
//
//	c := classifier.New()
//	verdict := c.Classify(err)
//	if verdict.Abort {
//	    // give up now
//	}
//
// Custom patterns registered with AddPattern take precedence over the
// built-in table.
package classifier
