package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout, generation can take minutes
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	token := os.Getenv("API_TOKEN")
	if token == "" {
		color.Red("API_TOKEN env var is required (any valid JWT signed with JWT_SECRET)")
		os.Exit(1)
	}

	subjectID := os.Getenv("SUBJECT_ID")
	if subjectID == "" {
		color.Red("SUBJECT_ID env var is required (uuid of an indexed subject)")
		os.Exit(1)
	}

	topic := os.Getenv("TOPIC")
	if topic == "" {
		topic = "Cardiac cycle and blood pressure regulation"
	}

	color.Cyan("🚀 Tracing Retrieval + Generation Pipeline\n")

	// 1. Retrieve evidence with diagnostics
	color.Yellow("\n1. Retrieve Evidence (with pipeline diagnostics)")
	retrieveReq := map[string]interface{}{
		"subject_id":    subjectID,
		"topic_name":    topic,
		"bloom_level":   "analysis",
		"difficulty":    "hard",
		"question_type": "MCQ",
		"num_results":   5,
	}
	resp, body, err := sendRequest("POST", "/generation/v1/retrieve", token, retrieveReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var retrieveResp map[string]interface{}
	json.Unmarshal(body, &retrieveResp)
	// Concise printing: chunk ids + scores, full diagnostics
	if data, ok := retrieveResp["data"].(map[string]interface{}); ok {
		if chunks, ok := data["chunks"].([]interface{}); ok {
			fmt.Printf("Chunks: %d\n", len(chunks))
			for _, c := range chunks {
				if m, ok := c.(map[string]interface{}); ok {
					fmt.Printf("  %v  score=%v  pages=%v-%v\n", m["chunk_id"], m["score"], m["page_start"], m["page_end"])
				}
			}
		}
		if diag, ok := data["diagnostics"]; ok {
			color.Yellow("\nDiagnostics:")
			prettyPrint(diag)
		}
	} else {
		prettyPrint(retrieveResp)
	}

	// 2. Generate a question end to end
	color.Yellow("\n2. Generate Question (full council loop)")
	generateReq := map[string]interface{}{
		"subject_id":          subjectID,
		"subject":             "Human Physiology",
		"topic_name":          topic,
		"question_type":       "MCQ",
		"difficulty":          "hard",
		"bloom_level":         "analysis",
		"include_diagnostics": true,
	}
	resp, body, err = sendRequest("POST", "/generation/v1/generate", token, generateReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var genResp map[string]interface{}
	json.Unmarshal(body, &genResp)
	if data, ok := genResp["data"].(map[string]interface{}); ok {
		fmt.Printf("Accepted: %v  Confidence: %v  SelectedFrom: %v\n", data["accepted"], data["confidence"], data["selected_from"])
		if q, ok := data["question"].(map[string]interface{}); ok {
			fmt.Printf("Question: %v\n", q["question_text"])
			if opts, ok := q["options"].([]interface{}); ok {
				for _, o := range opts {
					fmt.Printf("  %v\n", o)
				}
			}
			fmt.Printf("Answer: %v\n", q["correct_answer"])
			fmt.Printf("Cited chunks: %v\n", q["used_chunks"])
		}
		if errs, ok := data["validation_errors"].([]interface{}); ok && len(errs) > 0 {
			color.Red("Validation errors: %d", len(errs))
			prettyPrint(errs)
		}
	} else {
		prettyPrint(genResp)
	}

	// 3. Reset the session so reruns start clean
	color.Yellow("\n3. Reset Session")
	resetReq := map[string]interface{}{
		"subject_id": subjectID,
	}
	resp, body, err = sendRequest("POST", "/generation/v1/session/reset", token, resetReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var resetResp map[string]interface{}
	json.Unmarshal(body, &resetResp)
	prettyPrint(resetResp)

	color.Cyan("\n✅ Trace Complete")
}
