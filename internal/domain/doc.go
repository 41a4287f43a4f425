// Package domain contains the core types of the banking client and the
// contracts it expects from the backend. It has no dependencies on transport
// or storage packages.
package domain
