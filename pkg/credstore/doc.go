// Package credstore holds the single Credential Record for a signed-in
// staff member.
//
// A Store is backed by two tiers. The session tier lives only as long as
// the process; the durable tier survives restarts and is used when the
// user asked to be remembered. A record is only ever present in one tier
// at a time, and a record that fails validation when read is cleared and
// reported as absent.
package credstore
