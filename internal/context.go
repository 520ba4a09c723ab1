package internal

// A private type to prevent key collisions in request contexts.
type payloadKeyType struct{}

// PayloadKey is the key under which the framework adaptors store the shaped
// submission Record in the request context.
var PayloadKey = payloadKeyType{}
