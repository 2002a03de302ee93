// Package output encodes resolution results deterministically.
//
// Identical inputs produce byte-identical output:
//
//  1. Object keys are sorted alphabetically
//  2. float64 values built in-process are rounded to at most 6 decimals
//  3. json.Number values decoded from input keep their original text
//  4. Null values are kept, since a null picklist is a meaningful result
//  5. HTML characters are not escaped
//
// JSON is the default format; YAML renders the same normalized tree.
package output
