// Package model defines stable boundary types for API layers.
//
// Property identity (canonical bytes and PropertyID) is unaffected by any
// projection. These structs are the only types intended for direct JSON/YAML
// serialization by consumers; convert them to engine values with ToProperty
// and ToWitness.
package model
