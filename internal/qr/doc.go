// Package qr turns a scanned QR image into a verified transfer destination
// candidate. Decoding is raced against a fixed deadline so a heavy or
// unreadable image cannot stall the transfer flow.
package qr
