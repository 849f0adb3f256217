/*
Package mock provides an in-memory implementation of vectorize.Client for
testing worker functions without host calls.

A Client echoes the IndexDetails it was configured with, the way a plain
object binding behaves in a local runtime: a missing metric reports "cosine"
and counts start at zero. Inserts are validated against the configured
dimensions and update the processed and stored counts.

	idx := mock.New(mock.Config{Details: vectorize.IndexDetails{Name: "VECTORIZE", Dimensions: 2}})
	d, _ := idx.Describe() // {Name: VECTORIZE, Dimensions: 2, Metric: cosine}

# Overriding Behavior

	idx.OnDescribe().ReturnError(vectorize.ErrBindingNotFound)
	idx.OnInsert().ReturnMutation(vectorize.Mutation{MutationID: "fixed"})

# Inspecting Calls

	for _, c := range idx.Calls() {
		// c.Op, c.Vectors
	}
*/
package mock
