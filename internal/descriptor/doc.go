// Package descriptor checks that compose descriptors parse.
//
// Descriptors are otherwise opaque to stevedore; this lint only loads them
// with compose-go to catch syntax and schema errors before a run, and warns
// when a network the service is attached to in the configuration is not
// declared as an external network in the descriptor.
package descriptor
