// Package junction holds the static description of the signal network:
// junctions with their phase rings, named emergency corridors, and the
// vehicle types that map to preemption classes.
//
// A catalogue comes from a YAML file, from SQLite, or from the built-in
// five-junction network, in that order of preference (see Resolve). The
// indexed Table supplies the arbitration engine's phase table and the
// corridor and vehicle type lookups used by the command dispatcher.
//
// Example file:
//
//	junctions:
//	  - id: J001
//	    name: "Main St & 1st Ave"
//	    phases:
//	      - {id: P1, name: "Outer Ring Road", duration_seconds: 45}
//	      - {id: P2, name: "MG Road", duration_seconds: 20}
//	corridors:
//	  - id: route-1
//	    name: "Main St Northbound"
//	    junctions: [J001, J002]
//	    default_class: high
//	vehicle_types:
//	  - {id: ambulance, name: Ambulance, class: critical}
package junction
