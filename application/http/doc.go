// Package http implements Hypertext Transfer Protocol (HTTP)
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9111
//
// - https://datatracker.ietf.org/doc/html/rfc9112
//
// - https://datatracker.ietf.org/doc/html/rfc9113
//
// - TODO: https://datatracker.ietf.org/doc/html/rfc9114
package http
