// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "context"

// Prediction is the text-query answer.
type Prediction struct {
	Response string `json:"response"`
	Status   string `json:"status"`
	Details  string `json:"details"`
}

// Predict sends a free-text question to the assistant.
func (c *Client) Predict(ctx context.Context, text string) (Prediction, error) {
	var resp Prediction
	if err := c.post(ctx, "/nlp/predict", map[string]string{"text": text}, &resp, true); err != nil {
		return Prediction{}, err
	}
	return resp, nil
}
