// Package domain contains the pure data model of the dialogue orchestrator:
// domain configurations, sessions, turns, derived context, slot-collection
// state and the closed Value type slot values are built from.
//
// Nothing in this package performs I/O or holds locks; ownership and
// mutation rules live in the session store and orchestration engine.
package domain
