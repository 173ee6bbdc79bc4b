// Package cells converts raw database column values into typed spreadsheet
// cells.
//
// Every value is first classified into one of a closed set of kinds (null,
// integer, decimal, float, datetime, boolean, string, other) and then mapped:
//
//	nil                                   -> empty text cell
//	int*/uint*, *big.Int, decimal, float  -> number cell, canonical decimal text
//	time.Time                             -> date cell, date serial value, date style
//	bool                                  -> boolean cell, "true"/"false"
//	string                                -> text cell
//	anything else                         -> text cell holding the JSON encoding
//
// Mapping never fails, so an unexpected driver type cannot abort an export.
package cells
