// Package harness runs YAML conformance scenarios against the product
// registry.
//
// A scenario is a flow of registry calls with expected outcomes followed by
// assertions over the trace and the final state:
//
//	name: scenario_b_register_event
//	description: The owner appends an event to a registered product.
//	flow:
//	  - invoke: registerProduct
//	    args: {id: 2, quantity: 5, hash: H2, caller: "0xA11CE"}
//	  - invoke: registerEvent
//	    args: {id: 2, event_type: SHIPPED, event_data: to warehouse, caller: "0xA11CE"}
//	assertions:
//	  - type: notifications
//	    kinds: [ProductRegistered, ProductEvent]
//
// Files are checked against an embedded CUE schema before decoding. Each
// scenario runs on a fresh in-memory store with a deterministic clock, so
// the trace (invocations, completions and emitted notifications) is stable
// and can be compared against golden files.
package harness
