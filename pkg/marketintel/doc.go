// Package marketintel provides a Go client for the market intelligence
// analysis service.
//
//	client := marketintel.New("http://localhost:8080")
//	analysis, _ := client.Query(ctx, marketintel.QueryRequest{
//	    Query:         "Compare auto insurance rates",
//	    InsuranceType: "auto",
//	    State:         "CA",
//	})
//	fmt.Println(analysis.Answer)
package marketintel
