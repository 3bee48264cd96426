package runner

var defaultHistogramBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 600, 1800, /* 30 mins */
}

var customBuckets = map[string][]float64{
	"correlation_matrix_targets": {
		2, 5, 10, 25, 50, 100, 250, 500, 1000, 1600,
	},
	"corr_query_time": {
		0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60, 300, 1800,
	},
}
