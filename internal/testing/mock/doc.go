// Package mock provides test doubles shared by the stevedore packages: a
// scripted container Runtime that records every call and a controllable
// Clock.
package mock
