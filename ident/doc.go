// Package ident implements the 128-bit element identity used to key building
// elements in the spatial index.
//
// An identity is carried as two 64-bit words and has a 22 character interchange
// form drawn from a 64 symbol alphabet:
//
//	id, err := ident.Decode("3vB2YO$MX4xv5uCqZZG05x")
//	s := id.String() // "3vB2YO$MX4xv5uCqZZG05x"
//
// The first character only contributes two bits, so the 22 characters hold
// exactly 2+20*6+6 = 128 bits. Shorter strings (numeric ids from external
// sources) can be parsed with Parse, which left-pads with the zero symbol.
package ident
