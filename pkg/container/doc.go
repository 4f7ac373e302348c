// Package container provides a small dependency-injection container with
// three binding lifecycles: singleton, scoped, and transient.
//
// Bindings are registered during application bootstrap and resolved at
// runtime. Scoped bindings live for the duration of one request scope,
// opened with WithScope. Each call to WithScope produces a request-local
// view of the container, so concurrent requests never share scoped state.
//
// Example:
//
//	c := container.New()
//	c.Bind(dbKey, container.Singleton, func(c *container.Container) (any, error) {
//	    return openDB()
//	})
//	c.Bind(txKey, container.Scoped, func(c *container.Container) (any, error) {
//	    db, err := container.Resolve[*DB](c, dbKey)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return db.Begin()
//	})
//
//	err := c.WithScope(func(sc *container.Container) error {
//	    tx, err := container.Resolve[*Tx](sc, txKey)
//	    ...
//	})
package container
