// Package normalize turns autocomplete response bodies into term lists.
//
// Autocomplete services do not agree on a response shape. Some return a bare
// JSON array of strings, some wrap the array in an object under a key such as
// "suggestions", and some return objects carrying a "name" field. Decode
// converts a body into a closed Value variant (string, list, mapping, other)
// and Terms dispatches on that variant to extract candidate terms.
//
// # Shapes
//
//	["ant", "bee"]                        -> ["ant", "bee"]
//	[{"name": "ant"}, {"id": 3}]          -> ["ant"]
//	{"suggestions": ["cat"]}              -> ["cat"]
//	{"x": 1, "y": 2}                      -> ["1", "2"]
//	42                                    -> []
//
// Mapping elements without a string "name" are dropped rather than kept as
// placeholders, so a discovered vocabulary never contains a null term.
package normalize
