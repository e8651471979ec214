package extraction

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Groq", func() {
	var (
		server *ghttp.Server
		groq   *Groq
		delays []time.Duration
	)

	newClient := func(apiKey string) *Groq {
		cfg := DefaultConfig()
		cfg.BaseURL = server.URL()
		g := NewGroq(apiKey, cfg)
		g.sleep = func(d time.Duration) {
			delays = append(delays, d)
		}
		return g
	}

	chatBody := func(content string) map[string]any {
		return map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
	}

	BeforeEach(func() {
		server = ghttp.NewServer()
		delays = nil
		groq = newClient("test-key")
	})

	AfterEach(func() {
		server.Close()
	})

	When("the first attempt succeeds", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
				ghttp.VerifyContentType("application/json"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, chatBody(`[{"item":"Banana","price":"1,50","quantity":2}]`)),
			))
		})

		It("returns the parsed items", func() {
			items, err := groq.Extract(context.Background(), "receipt text", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(Equal([]Item{{Item: "Banana", Price: 1.50, Quantity: 2}}))
		})

		It("makes exactly one request and never sleeps", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(server.ReceivedRequests()).To(HaveLen(1))
			Expect(delays).To(BeEmpty())
		})
	})

	When("the provider returns 500 twice and then succeeds", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, chatBody(`[{"item":"Milk","price":1.20}]`)),
			)
		})

		It("succeeds on the third attempt", func() {
			items, err := groq.Extract(context.Background(), "receipt text", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(server.ReceivedRequests()).To(HaveLen(3))
		})

		It("backs off linearly between attempts", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(delays).To(Equal([]time.Duration{1 * time.Second, 2 * time.Second}))
		})
	})

	When("every attempt fails with 500", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
			)
		})

		It("gives up after the retry budget is spent", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 1)
			Expect(err).To(MatchError(ContainSubstring("after 2 attempts")))
			Expect(server.ReceivedRequests()).To(HaveLen(2))
			Expect(delays).To(Equal([]time.Duration{1 * time.Second}))
		})
	})

	When("the provider rejects the credential", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusUnauthorized, "invalid key"),
			)
		})

		It("fails immediately with an auth error and never retries", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 2)
			var authErr *AuthError
			Expect(errors.As(err, &authErr)).To(BeTrue())
			Expect(server.ReceivedRequests()).To(HaveLen(1))
			Expect(delays).To(BeEmpty())
		})
	})

	When("the provider returns another client error", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusBadRequest, "bad request"),
			)
		})

		It("fails immediately without retrying", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 2)
			Expect(err).To(MatchError(ContainSubstring("status 400")))
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the provider reports a logical error in the body", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"error": map[string]any{"message": "model overloaded", "type": "server_error"},
				}),
			)
		})

		It("fails immediately with the provider message", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 2)
			Expect(err).To(MatchError(ContainSubstring("model overloaded")))
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the response has no content", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"choices": []any{}}),
			)
		})

		It("fails immediately", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 2)
			Expect(err).To(MatchError(ContainSubstring("empty response")))
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("no api key is configured", func() {
		BeforeEach(func() {
			groq = newClient("")
		})

		It("fails with a config error before calling the provider", func() {
			_, err := groq.Extract(context.Background(), "receipt text", 2)
			var configErr *ConfigError
			Expect(errors.As(err, &configErr)).To(BeTrue())
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})

	When("maxRetries is negative", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
			)
		})

		It("falls back to the configured default of 2 retries", func() {
			_, err := groq.Extract(context.Background(), "receipt text", -1)
			Expect(err).To(HaveOccurred())
			Expect(server.ReceivedRequests()).To(HaveLen(3))
		})
	})
})
