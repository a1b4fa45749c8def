package domain

import "testing"

func TestValidateCrawlTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    CrawlStatus
		to      CrawlStatus
		wantErr bool
	}{
		// Valid transitions from processing
		{"processing to success", CrawlProcessing, CrawlSuccess, false},
		{"processing to failure", CrawlProcessing, CrawlFailure, false},

		// Invalid transitions from processing
		{"processing to processing", CrawlProcessing, CrawlProcessing, true},

		// Re-crawl resets terminal states
		{"success to processing", CrawlSuccess, CrawlProcessing, false},
		{"failure to processing", CrawlFailure, CrawlProcessing, false},

		// Terminal states cannot jump between each other
		{"success to failure", CrawlSuccess, CrawlFailure, true},
		{"failure to success", CrawlFailure, CrawlSuccess, true},

		// Unknown states
		{"unknown from state", CrawlStatus("bogus"), CrawlSuccess, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCrawlTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCrawlTransition(%s, %s) error = %v, wantErr %v",
					tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAnalysisTransition(t *testing.T) {
	tests := []struct {
		name    string
		crawl   CrawlStatus
		from    AnalysisStatus
		to      AnalysisStatus
		wantErr bool
	}{
		// Valid lifecycle on a successful crawl
		{"pending to analyzing", CrawlSuccess, AnalysisPending, AnalysisAnalyzing, false},
		{"analyzing to completed", CrawlSuccess, AnalysisAnalyzing, AnalysisCompleted, false},
		{"analyzing to failed", CrawlSuccess, AnalysisAnalyzing, AnalysisFailed, false},
		{"completed to analyzing", CrawlSuccess, AnalysisCompleted, AnalysisAnalyzing, false},
		{"failed to analyzing", CrawlSuccess, AnalysisFailed, AnalysisAnalyzing, false},

		// Re-crawl resets
		{"analyzing to pending", CrawlSuccess, AnalysisAnalyzing, AnalysisPending, false},
		{"completed to pending", CrawlSuccess, AnalysisCompleted, AnalysisPending, false},
		{"failed to pending", CrawlSuccess, AnalysisFailed, AnalysisPending, false},

		// Invalid hops
		{"pending to completed", CrawlSuccess, AnalysisPending, AnalysisCompleted, true},
		{"pending to failed", CrawlSuccess, AnalysisPending, AnalysisFailed, true},
		{"completed to failed", CrawlSuccess, AnalysisCompleted, AnalysisFailed, true},

		// Cross-invariant: analysis cannot advance unless the crawl succeeded
		{"failed crawl cannot start analysis", CrawlFailure, AnalysisPending, AnalysisAnalyzing, true},
		{"processing crawl cannot start analysis", CrawlProcessing, AnalysisPending, AnalysisAnalyzing, true},
		{"failed crawl cannot complete analysis", CrawlFailure, AnalysisAnalyzing, AnalysisCompleted, true},

		// Reset to pending is allowed regardless of crawl status
		{"reset on failed crawl", CrawlFailure, AnalysisAnalyzing, AnalysisPending, false},
		{"reset on processing crawl", CrawlProcessing, AnalysisCompleted, AnalysisPending, false},

		// Unknown states
		{"unknown from state", CrawlSuccess, AnalysisStatus("bogus"), AnalysisAnalyzing, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnalysisTransition(tt.crawl, tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAnalysisTransition(%s, %s, %s) error = %v, wantErr %v",
					tt.crawl, tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestCanAnalyze(t *testing.T) {
	batchPath := "crawl_files/batch_20250614_093000"
	empty := ""

	tests := []struct {
		name string
		log  TaskLog
		want bool
	}{
		{
			"successful crawl with batch",
			TaskLog{Status: CrawlSuccess, BatchPath: &batchPath, AnalysisStatus: AnalysisPending},
			true,
		},
		{
			"re-analysis after completion",
			TaskLog{Status: CrawlSuccess, BatchPath: &batchPath, AnalysisStatus: AnalysisCompleted},
			true,
		},
		{
			"failed crawl",
			TaskLog{Status: CrawlFailure, BatchPath: &batchPath, AnalysisStatus: AnalysisPending},
			false,
		},
		{
			"no batch path",
			TaskLog{Status: CrawlSuccess, AnalysisStatus: AnalysisPending},
			false,
		},
		{
			"empty batch path",
			TaskLog{Status: CrawlSuccess, BatchPath: &empty, AnalysisStatus: AnalysisPending},
			false,
		},
		{
			"already analyzing",
			TaskLog{Status: CrawlSuccess, BatchPath: &batchPath, AnalysisStatus: AnalysisAnalyzing},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.log.CanAnalyze(); got != tt.want {
				t.Errorf("CanAnalyze() = %v, want %v", got, tt.want)
			}
		})
	}
}
