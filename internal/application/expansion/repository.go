// Package expansion implements synthon extraction and fragment-network
// expansion: carving a partner fragment into synthons and querying the graph
// for vendor compounds that extend the base fragment through each synthon.
package expansion

import "context"

// ExpansionHit is one vendor compound returned by the bounded neighbourhood
// query.
type ExpansionHit struct {
	// SMILES of the compound node.
	SMILES string
	// HeavyAtoms is the node's heavy-atom count as stored in the graph.
	HeavyAtoms int
	// CompoundID is the vendor identifier when the graph carries one.
	CompoundID string
}

// GraphRepository is the fragment-network query surface the application layer
// depends on.  The Neo4j implementation lives in the infrastructure layer;
// tests substitute an in-memory fake.
type GraphRepository interface {
	// NodeExists reports whether a fragment node with this SMILES is present
	// in the network.
	NodeExists(ctx context.Context, smiles string) (bool, error)

	// DescendantEdgeLabels returns the labels of every FRAG edge reachable by
	// recursive traversal below the given fragment node.  Labels encode the
	// synthon pair produced by each fragmentation step.
	DescendantEdgeLabels(ctx context.Context, smiles string) ([]string, error)

	// BoundedExpansion returns compound nodes within maxHops of the fragment
	// node that attach through the given synthon and carry more than
	// minHeavyAtoms heavy atoms.
	BoundedExpansion(ctx context.Context, smiles, synthon string, maxHops, minHeavyAtoms int) ([]ExpansionHit, error)
}
