/*
Package router maps worker requests onto handlers and hands each handler an
Env holding its bindings.

The host delivers a request as a tarmac HTTPClient protobuf and expects an
HTTPClientResponse back. Router decodes the request, matches the exact path
and method, runs the handler, and encodes the result:

	r := router.New(router.Config{})
	r.Get("/vectorize/describe", func(req *router.Request, env *router.Env) (*router.Response, error) {
		idx, err := env.Vectorize("VECTORIZE")
		if err != nil {
			return nil, err
		}
		d, err := idx.Describe()
		if err != nil {
			return nil, err
		}
		return router.JSON(http.StatusOK, d)
	})
	sdk.New(sdk.Config{Handler: r.Handler()})

Unknown paths answer 404, known paths with another method answer 405, and
handler errors answer 500 with the error text.
*/
package router
