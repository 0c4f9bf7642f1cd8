// Package reag provides a Go client for reasoning-augmented retrieval:
// a question is asked over a set of documents, a language model judges each
// document and documents it considers irrelevant are dropped from the answer.
//
// Documents may be narrowed by metadata before any model call:
//
//	err := reag.With(ctx, func(c *reag.Client) error {
//	    results, err := c.Query(ctx, "What is Superagent?", docs,
//	        reag.Where("id", reag.Equals, "sa-1"),
//	    )
//	    if err != nil {
//	        return err
//	    }
//	    for _, r := range results {
//	        fmt.Println(r.Document.Name, r.Content)
//	    }
//	    return nil
//	}, reag.WithOpenAI(reag.OpenAIConfig{APIKey: key, Model: "gpt-4o"}))
//
// Queries are all-or-nothing: on error no partial result list is returned.
// Use errors.Is with the exported sentinels and errors.As with *QueryError
// to find out where a query failed.
package reag
