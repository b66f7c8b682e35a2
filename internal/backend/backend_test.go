// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/ecosort-tui/internal/gateway"
)

// fakeBackend routes requests by "METHOD /path".
func fakeBackend(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
		h, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"Not Found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	gw := gateway.NewClient(&gateway.Config{BaseURL: srv.URL + "/api", HTTPClient: srv.Client()})
	return New(gw, Options{})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			assert.Equal(t, "ada@example.com", body["email"], "email is normalised")
			assert.Equal(t, "hunter22", body["password"])
			assert.Empty(t, r.Header.Get("Authorization"))
			io.WriteString(w, `{"success":true,"message":"Login successful","token":"jwt-1",
				"user":{"name":"Ada","user_id":"u1","is_admin":false}}`)
		},
	})

	res, err := c.Login(context.Background(), "  Ada@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", res.Token)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "Ada", res.User.Name)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"Invalid email or password"}`)
		},
	})

	_, err := c.Login(context.Background(), "a@b.c", "wrong-pass")
	require.Error(t, err)
	assert.True(t, gateway.IsUnauthorized(err))
	assert.Equal(t, "Invalid email or password", gateway.Message(err))
}

func TestLogin_MissingToken(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"success":true,"user":{"id":"u1"}}`)
		},
	})
	_, err := c.Login(context.Background(), "a@b.c", "secret1")
	assert.True(t, gateway.IsInvalidResponse(err))
}

func TestProviderLogins(t *testing.T) {
	for _, tc := range []struct {
		path string
		call func(c *Client) (AuthResult, error)
	}{
		{"/auth/google-login", func(c *Client) (AuthResult, error) { return c.GoogleLogin(context.Background(), "gtok") }},
		{"/auth/microsoft-login", func(c *Client) (AuthResult, error) { return c.MicrosoftLogin(context.Background(), "gtok") }},
	} {
		t.Run(tc.path, func(t *testing.T) {
			c := fakeBackend(t, map[string]http.HandlerFunc{
				"POST " + tc.path: func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "gtok", decodeBody(t, r)["token"])
					io.WriteString(w, `{"token":"jwt-p","user":{"id":"u2","email":"p@x.io","is_verified":true}}`)
				},
			})
			res, err := tc.call(c)
			require.NoError(t, err)
			assert.Equal(t, "jwt-p", res.Token)
			assert.Equal(t, "u2", res.User.ID)
			assert.True(t, res.User.IsVerified)
		})
	}
}

func TestRegisterAndVerify(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /auth/register": func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			assert.Equal(t, "Ada", body["name"])
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"success":true,"message":"User registered successfully","token":"unverified",
				"user":{"id":"u1","name":"Ada","email":"ada@example.com","is_verified":false}}`)
		},
		"POST /auth/verify-email": func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			assert.Equal(t, "ada@example.com", body["email"])
			assert.Equal(t, "123456", body["code"])
			io.WriteString(w, `{"message":"Email successfully verified","access_token":"jwt-v",
				"token_type":"bearer","user_id":"u1","email":"ada@example.com"}`)
		},
	})

	reg, err := c.Register(context.Background(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", reg.Message)
	assert.False(t, reg.User.IsVerified)

	res, err := c.VerifyEmail(context.Background(), "ada@example.com", " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, "jwt-v", res.Token)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "ada@example.com", res.User.Email)
}

func TestPasswordReset(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /auth/forgot-password": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"success":true,"message":"Password reset email sent"}`)
		},
		"POST /auth/reset-password": func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			assert.Equal(t, "rt-1", body["token"])
			assert.Equal(t, "n3wpass", body["new_password"])
			io.WriteString(w, `{"success":true,"message":"Password reset successful"}`)
		},
	})

	msg, err := c.ForgotPassword(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "Password reset email sent", msg)

	msg, err = c.ResetPassword(context.Background(), "rt-1", "n3wpass")
	require.NoError(t, err)
	assert.Equal(t, "Password reset successful", msg)
}

func TestMe_RequiresSession(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"GET /auth/me": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
			io.WriteString(w, `{"id":"u1","name":"Ada","email":"ada@example.com","is_verified":true,"is_admin":true}`)
		},
	})

	_, err := c.Me(context.Background())
	assert.True(t, gateway.IsUnauthenticated(err))

	c.Gateway().SetAuthToken("t1")
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.True(t, me.IsAdmin)
	assert.Equal(t, "Ada", me.DisplayName())
}

// =============================================================================
// NLP
// =============================================================================

func TestPredict(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /nlp/predict": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "how to recycle cans", decodeBody(t, r)["text"])
			io.WriteString(w, `{"response":"Rinse them.","status":"success","details":null}`)
		},
	})
	c.Gateway().SetAuthToken("t1")

	p, err := c.Predict(context.Background(), "how to recycle cans")
	require.NoError(t, err)
	assert.Equal(t, "Rinse them.", p.Response)
	assert.Equal(t, "success", p.Status)
}

func TestPredict_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	gw := gateway.NewClient(&gateway.Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	gw.SetAuthToken("t1")
	c := New(gw, Options{RequestTimeout: 30 * time.Millisecond})

	_, err := c.Predict(context.Background(), "slow")
	assert.True(t, gateway.IsTimeout(err), "got %v", err)
}

// =============================================================================
// WASTE CLASSIFICATION
// =============================================================================

const classifyBody = `{
  "success": true,
  "message": "Waste classification successful",
  "execution_time": 0.42,
  "classification": [{
    "waste_name": "Plastic Bottle",
    "category": "Plastic",
    "confidence": 0.9234,
    "estimated_weight": 25.0,
    "recycling_instructions": [
      {"step": 1, "title": "Empty", "description": "Pour out any liquid."},
      {"step": 2, "title": "Rinse", "description": "Rinse with water."}
    ],
    "decomposition_methods": {
      "ocean": {"time": "450 years", "process": "Photodegradation", "impact": "Microplastics", "recyclability": "High", "factors": ["UV", "salinity"]},
      "landfill": {"time": "1000 years", "process": "Slow", "impact": "Leaching", "recyclability_rating": 4, "factors": "Oxygen"},
      "buried": "Not Available"
    }
  }]
}`

func TestClassify_PreservesMethodOrder(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /waste/classify": func(w http.ResponseWriter, r *http.Request) {
			if _, hdr, err := r.FormFile("file"); assert.NoError(t, err) {
				assert.Equal(t, "bottle.png", hdr.Filename)
			}
			io.WriteString(w, classifyBody)
		},
	})
	c.Gateway().SetAuthToken("t1")

	res, err := c.Classify(context.Background(), Image{Name: "bottle.png", ContentType: "image/png", Data: []byte("PNG")})
	require.NoError(t, err)
	require.Len(t, res.Classification, 1)

	cl := res.Classification[0]
	assert.Equal(t, "Plastic Bottle", cl.WasteName)
	assert.InDelta(t, 0.9234, cl.Confidence, 1e-9)
	assert.True(t, cl.InstructionsAvailable)
	assert.Len(t, cl.Instructions, 2)

	want := []Method{
		{Name: "ocean", Available: true, Time: "450 years", Process: "Photodegradation", Impact: "Microplastics", Recyclability: "High", Factors: "UV, salinity"},
		{Name: "landfill", Available: true, Time: "1000 years", Process: "Slow", Impact: "Leaching", Recyclability: "4", Factors: "Oxygen"},
		{Name: "buried", Time: NotAvailable, Process: NotAvailable, Impact: NotAvailable, Recyclability: NotAvailable, Factors: NotAvailable},
	}
	if diff := cmp.Diff(want, cl.Methods); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}
}

func TestClassification_NotAvailableInstructions(t *testing.T) {
	var cl Classification
	err := json.Unmarshal([]byte(`{"waste_name":"Mystery","category":"Unknown","confidence":0.51,"estimated_weight":0,
		"recycling_instructions":"Not Available",
		"decomposition_methods":{"landfill":"Not Available","ocean":"Not Available"}}`), &cl)
	require.NoError(t, err)
	assert.False(t, cl.InstructionsAvailable)
	assert.Empty(t, cl.Instructions)
	require.Len(t, cl.Methods, 2)
	assert.Equal(t, "landfill", cl.Methods[0].Name)
	assert.False(t, cl.Methods[1].Available)
}

func TestClassification_Malformed(t *testing.T) {
	tests := []string{
		`{"recycling_instructions": 42}`,
		`{"decomposition_methods": [1,2]}`,
		`{"decomposition_methods": {"ocean": 7}}`,
	}
	for _, body := range tests {
		var cl Classification
		assert.Error(t, json.Unmarshal([]byte(body), &cl), body)
	}
}

func TestClassify_MalformedResponseIsInvalid(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /waste/classify": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"classification":[{"recycling_instructions":{"oops":true}}]}`)
		},
	})
	c.Gateway().SetAuthToken("t1")

	_, err := c.Classify(context.Background(), Image{Name: "x.jpg", Data: []byte("x")})
	assert.True(t, gateway.IsInvalidResponse(err), "got %v", err)
}

func TestClassify_ZeroResults(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /waste/classify": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"success":true,"classification":[]}`)
		},
	})
	c.Gateway().SetAuthToken("t1")

	res, err := c.Classify(context.Background(), Image{Name: "x.jpg", Data: []byte("x")})
	require.NoError(t, err)
	assert.Empty(t, res.Classification)
}

// =============================================================================
// FEEDBACK
// =============================================================================

func TestValidateFeedback(t *testing.T) {
	tests := []struct {
		name    string
		rating  float64
		text    string
		wantErr bool
	}{
		{"ok", 4, "great", false},
		{"min", 1, "", false},
		{"max", 5, strings.Repeat("é", MaxFeedbackRunes), false},
		{"zero", 0, "", true},
		{"six", 6, "", true},
		{"too long", 3, strings.Repeat("a", MaxFeedbackRunes+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeedback(tt.rating, tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFeedback() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFeedback) {
				t.Errorf("error should wrap ErrInvalidFeedback: %v", err)
			}
		})
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	var deleted string
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /feedback": func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			assert.Equal(t, float64(5), body["rating"])
			assert.Equal(t, "Very helpful", body["feedback_text"])
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":"f1","user_id":"u1","rating":5,"feedback_text":"Very helpful","timestamp":"2025-01-02T03:04:05.123456"}`)
		},
		"GET /feedback": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"id":"f1","rating":5,"feedback_text":"Very helpful","timestamp":"2025-01-02T03:04:05"}]`)
		},
		"GET /feedback/all": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"id":"f2","user_name":"Bo","rating":2,"feedback_text":"slow","timestamp":"x"},
				{"id":"f1","user_name":"Ada","rating":5,"feedback_text":"Very helpful","timestamp":"y"}]`)
		},
		"DELETE /feedback/f1": func(w http.ResponseWriter, r *http.Request) {
			deleted = "f1"
			io.WriteString(w, `{"message":"deleted"}`)
		},
	})
	c.Gateway().SetAuthToken("t1")
	ctx := context.Background()

	fb, err := c.SubmitFeedback(ctx, 5, "Very helpful")
	require.NoError(t, err)
	assert.Equal(t, "f1", fb.ID)

	mine, err := c.ListFeedback(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := c.ListAllFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bo", all[0].UserName)

	require.NoError(t, c.DeleteFeedback(ctx, "f1"))
	assert.Equal(t, "f1", deleted)
}

func TestSubmitFeedback_ValidationBeforeRequest(t *testing.T) {
	c := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /feedback": func(w http.ResponseWriter, r *http.Request) {
			t.Error("invalid feedback must not be sent")
		},
	})
	c.Gateway().SetAuthToken("t1")

	_, err := c.SubmitFeedback(context.Background(), 9, "")
	assert.ErrorIs(t, err, ErrInvalidFeedback)
}
