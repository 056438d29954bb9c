// Package cohortlens embeds the student cohort analytics engine in a Go
// program without running the HTTP service.
//
// Models are read from and trained into the same stores the service uses,
// so a process using this package and a running server share artifacts.
//
//	client, _ := cohortlens.New(ctx, cohortlens.WithFileStore("./data"))
//	defer client.Close()
//
//	rep, _ := client.Analyze(ctx, cohortlens.Record{"Hours_Studied": "20", ...})
//	fmt.Println(rep.Academic, rep.Persona)
//
// Training publishes into the client's model context immediately:
//
//	rows, _ := cohortlens.ReadCSV(f)
//	sum, _ := client.Train(ctx, rows, cohortlens.TrainOptions{FitRegression: true})
package cohortlens
