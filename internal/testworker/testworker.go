// Package testworker is the worker exercised by the harness tests and the
// local dev server. It reads the VECTORIZE binding and reports on it.
package testworker

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tarmac-project/bindings/router"
	"github.com/tarmac-project/bindings/vectorize"
)

// Binding is the vectorize binding name the worker reads.
const Binding = "VECTORIZE"

// Routes served by the worker.
const (
	PathDescribe = "/vectorize/describe"
	PathInsert   = "/vectorize/insert"
)

// New returns the worker's router.
func New(cfg router.Config) *router.Router {
	return router.New(cfg).
		Get(PathDescribe, describe).
		Post(PathInsert, insert)
}

func describe(_ *router.Request, env *router.Env) (*router.Response, error) {
	idx, err := env.Vectorize(Binding)
	if err != nil {
		return nil, err
	}

	details, err := idx.Describe()
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", Binding, err)
	}

	_ = env.Logger().Info("describe",
		"name", details.Name,
		"dimensions", details.Dimensions,
		"metric", details.Metric,
		"processed", details.ProcessedVectorsCount,
		"stored", details.StoredVectorsCount,
	)

	return router.JSON(http.StatusOK, details)
}

func insert(req *router.Request, env *router.Env) (*router.Response, error) {
	var vectors []vectorize.Vector
	if err := req.DecodeJSON(&vectors); err != nil {
		return router.Text(http.StatusBadRequest, err.Error()), nil
	}

	idx, err := env.Vectorize(Binding)
	if err != nil {
		return nil, err
	}

	mutation, err := idx.Insert(vectors)
	switch {
	case errors.Is(err, vectorize.ErrInvalidVectors),
		errors.Is(err, vectorize.ErrInvalidVectorID),
		errors.Is(err, vectorize.ErrRejected):
		return router.Text(http.StatusBadRequest, err.Error()), nil
	case err != nil:
		return nil, fmt.Errorf("insert into %s: %w", Binding, err)
	}

	_ = env.Logger().Info("insert", "vectors", len(vectors), "mutation", mutation.MutationID)

	return router.JSON(http.StatusOK, mutation)
}
