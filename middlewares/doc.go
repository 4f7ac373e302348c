// Package middlewares provides stock middleware for anvil applications:
// request correlation IDs, request logging, panic recovery, CORS, and
// request timeouts.
//
// Each constructor returns a middleware reference suitable for
// application, group, or route attachment:
//
//	app := anvil.New(
//	    anvil.WithMiddleware(
//	        middlewares.RequestID(),
//	        middlewares.Logging(),
//	        middlewares.Recover(),
//	    ),
//	)
package middlewares
