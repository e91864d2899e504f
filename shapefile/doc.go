// Package shapefile reads shape descriptors and values from YAML.
//
// A schema file names its types and picks a root:
//
//	root: entry
//	types:
//	  color:
//	    enum: [red, green, blue]
//	  entry:
//	    struct:
//	      id: u32
//	      name: string
//	      tint: {optional: color}
//	      tags: {list: string}
//
// A type is either a scalar (a primitive name, string, bytes, or the name
// of another type) or a single-key mapping naming the composite form:
//
//	array:    {len: 4, of: u8}
//	slice:    T            borrowed: T
//	struct:   {field: T, ...}          tuple: [T, ...]
//	packed:   {backing: u16, fields: {on: bool, level: u3, delta: s4}}
//	optional: T
//	enum:     [a, b]  or  {backing: u16, members: {a: 1, b: 7}}
//	union:    {case: T, empty: null, ...}
//	errors:   [a, b]  or  {a: 1, b: 2}
//	fallible: {ok: T, errors: E}
//	list:     T            managed: T
//	map:      {key: K, value: V, ordered: true}
//
// Struct field order and union case order follow the document. Value
// documents use the natural YAML form of each shape; see ParseValue and
// ToNode.
package shapefile
