package mcts

// Shared type definitions, which didn't fit into the planner or node files

// State of the decision process. States are used as map keys for
// successor merging and transposition lookups, so the type must be
// comparable. For big state structs prefer a compact value type or an id.
type StateLike comparable

// Action applicable in a state, also used as a map key inside nodes.
type ActionLike comparable

// How the final action is extracted from the root's edges
type BestActionPolicy int

// Signature of the seed source for the planner's random number generators
type SeedGeneratorFnType func() uint64
