package model

type ImportBatchResult struct {
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	CreatedIDs []string `json:"created_ids"`
}

type ImportRun struct {
	ID        string   `json:"id"`
	Method    string   `json:"method"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
	Ctime     int64    `json:"ctime"`
}
