package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/gate"
	"github.com/psds-microservice/consultation-service/internal/handler"
	"github.com/psds-microservice/consultation-service/internal/middleware"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/internal/router"
	"github.com/psds-microservice/consultation-service/internal/service"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

type caller struct {
	id, role string
	vetMode  bool
}

var (
	admin   = caller{id: "admin-1", role: "admin"}
	vet     = caller{id: "vet-1", role: "vet", vetMode: true}
	offDuty = caller{id: "vet-2", role: "vet"}
	owner   = caller{id: "owner-1", role: "user"}
)

func do(h http.Handler, method, path string, who *caller, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			Expect(json.NewEncoder(&buf).Encode(b)).To(Succeed())
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(middleware.HeaderCallerID, who.id)
		req.Header.Set(middleware.HeaderCallerRole, who.role)
		if who.vetMode {
			req.Header.Set(middleware.HeaderVetMode, "true")
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

func outcome(t model.Thread, to gate.State, r model.Reply) *service.ReplyOutcome {
	t.Status = to.Status
	t.IsConversationOpen = to.Open
	return &service.ReplyOutcome{Thread: &t, Reply: &r, From: gate.Initial(), To: to}
}

var _ = Describe("ThreadHandler", func() {
	var (
		h        http.Handler
		svc      *mockThreadService
		producer *mockProducer
		indexer  *mockIndexer
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		svc = &mockThreadService{}
		producer = &mockProducer{}
		indexer = &mockIndexer{}
		h = router.New(router.Deps{
			Health:  handler.NewHealthHandler(nil),
			Threads: handler.NewThreadHandler(svc, producer, indexer, logger.NewNop()),
			Content: handler.NewContentHandler(&mockContentService{}, logger.NewNop()),
			Log:     logger.NewNop(),
		})
	})

	It("requires a caller identity", func() {
		w := do(h, http.MethodGet, "/api/v1/inquiries", nil, nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decode(w)["success"]).To(BeFalse())
	})

	It("serves health without identity", func() {
		w := do(h, http.MethodGet, "/health", nil, nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		w = do(h, http.MethodGet, "/ready", nil, nil)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	Describe("Create", func() {
		It("creates a consultation owned by the caller", func() {
			var captured *model.Thread
			svc.createFn = func(_ context.Context, t *model.Thread) error {
				captured = t
				t.ID = 42
				t.Status = model.ThreadStatusPending
				t.IsConversationOpen = true
				return nil
			}
			w := do(h, http.MethodPost, "/api/v1/consultations", &owner, map[string]string{
				"body": "My dog is coughing", "pet_name": "Rex", "priority": "HIGH",
			})
			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(captured.Kind).To(Equal(model.ThreadKindConsultation))
			Expect(captured.OwnerUserID).To(Equal("owner-1"))
			Expect(captured.Priority).To(Equal(model.PriorityHigh))
			Expect(decode(w)["is_conversation_open"]).To(BeTrue())
			Eventually(producer.names).Should(ContainElement("thread.created"))
			Expect(indexer.ids()).To(ContainElement(uint64(42)))
		})

		It("rejects a missing body", func() {
			w := do(h, http.MethodPost, "/api/v1/inquiries", &owner, map[string]string{"subject": "x"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Reply (responder)", func() {
		It("keeps consultation #42 open", func() {
			svc.replyAsResponderFn = func(_ context.Context, kind model.ThreadKind, id uint64, responderID, content string, keep bool) (*service.ReplyOutcome, error) {
				Expect(kind).To(Equal(model.ThreadKindConsultation))
				Expect(id).To(BeEquivalentTo(42))
				Expect(responderID).To(Equal("vet-1"))
				Expect(content).To(Equal("راجع الطبيب خلال يومين"))
				Expect(keep).To(BeTrue())
				return outcome(model.Thread{ID: 42, Kind: kind}, gate.State{Status: model.ThreadStatusAnswered, Open: true},
					model.Reply{ID: 1, ThreadID: 42, AuthorRole: model.AuthorRoleResponder, IsOfficial: true, Content: content}), nil
			}
			w := do(h, http.MethodPost, "/api/v1/consultations/42/replies", &vet, map[string]any{
				"content": "راجع الطبيب خلال يومين", "keep_conversation_open": true,
			})
			Expect(w.Code).To(Equal(http.StatusCreated))
			resp := decode(w)
			Expect(resp["success"]).To(BeTrue())
			Expect(resp["message"]).To(ContainSubstring("open"))
			Expect(resp["thread"].(map[string]any)["is_conversation_open"]).To(BeTrue())
			Eventually(producer.names).Should(ContainElement("thread.replied"))
		})

		It("defaults keep_conversation_open to false", func() {
			var gotKeep = true
			svc.replyAsResponderFn = func(_ context.Context, kind model.ThreadKind, id uint64, _, content string, keep bool) (*service.ReplyOutcome, error) {
				gotKeep = keep
				return outcome(model.Thread{ID: id, Kind: kind}, gate.State{Status: model.ThreadStatusClosed}, model.Reply{Content: content}), nil
			}
			w := do(h, http.MethodPost, "/api/v1/inquiries/7/replies", &admin, map[string]string{"content": "تم الحل"})
			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(gotKeep).To(BeFalse())
			Expect(decode(w)["message"]).To(ContainSubstring("closed"))
		})

		It("forbids non-responders, including vets outside vet mode", func() {
			for _, who := range []caller{owner, offDuty} {
				w := do(h, http.MethodPost, "/api/v1/inquiries/7/replies", &who, map[string]string{"content": "hi"})
				Expect(w.Code).To(Equal(http.StatusForbidden))
			}
			Expect(svc.replyCalls).To(BeZero())
		})

		It("maps validation errors to 400 with the message", func() {
			svc.replyAsResponderFn = func(context.Context, model.ThreadKind, uint64, string, string, bool) (*service.ReplyOutcome, error) {
				return nil, errs.ErrEmptyContent
			}
			w := do(h, http.MethodPost, "/api/v1/inquiries/7/replies", &admin, map[string]string{"content": " "})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w)["message"]).To(Equal("content is required"))
		})

		It("hides unexpected errors behind a generic message", func() {
			svc.replyAsResponderFn = func(context.Context, model.ThreadKind, uint64, string, string, bool) (*service.ReplyOutcome, error) {
				return nil, errors.New("pq: connection reset")
			}
			w := do(h, http.MethodPost, "/api/v1/inquiries/7/replies", &admin, map[string]string{"content": "x"})
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(decode(w)["message"]).To(Equal("failed to submit reply"))
		})

		It("rejects invalid ids", func() {
			w := do(h, http.MethodPost, "/api/v1/inquiries/abc/replies", &admin, map[string]string{"content": "x"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("OwnerReply", func() {
		It("passes the caller as owner", func() {
			svc.replyAsOwnerFn = func(_ context.Context, kind model.ThreadKind, id uint64, ownerID, content string) (*service.ReplyOutcome, error) {
				Expect(ownerID).To(Equal("owner-1"))
				return outcome(model.Thread{ID: id, Kind: kind}, gate.State{Status: model.ThreadStatusPending, Open: true},
					model.Reply{AuthorRole: model.AuthorRoleOwner, Content: content}), nil
			}
			w := do(h, http.MethodPost, "/api/v1/consultations/42/owner-replies", &owner, map[string]string{"content": "شكراً"})
			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(decode(w)["thread"].(map[string]any)["status"]).To(Equal("pending"))
		})

		It("refuses to let owners set the gate", func() {
			w := do(h, http.MethodPost, "/api/v1/consultations/42/owner-replies", &owner, map[string]any{
				"content": "keep it open", "keep_conversation_open": true,
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(svc.replyCalls).To(BeZero())
		})

		It("returns 409 while the conversation is closed", func() {
			svc.replyAsOwnerFn = func(context.Context, model.ThreadKind, uint64, string, string) (*service.ReplyOutcome, error) {
				return nil, errs.ErrConversationClosed
			}
			w := do(h, http.MethodPost, "/api/v1/inquiries/7/owner-replies", &owner, map[string]string{"content": "hello?"})
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(decode(w)["message"]).To(Equal("conversation is closed"))
		})

		It("answers 404 for someone else's thread", func() {
			svc.replyAsOwnerFn = func(context.Context, model.ThreadKind, uint64, string, string) (*service.ReplyOutcome, error) {
				return nil, fmt.Errorf("%w: not the thread owner", errs.ErrForbidden)
			}
			w := do(h, http.MethodPost, "/api/v1/inquiries/7/owner-replies", &owner, map[string]string{"content": "hi"})
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(decode(w)["message"]).To(Equal("thread not found"))
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			svc.detailFn = func(_ context.Context, kind model.ThreadKind, id uint64) (*model.ThreadDetail, error) {
				if id == 404 {
					return nil, errs.ErrThreadNotFound
				}
				return &model.ThreadDetail{
					Thread:  model.Thread{ID: id, Kind: kind, OwnerUserID: "owner-1", IsConversationOpen: false},
					Replies: []model.Reply{{ID: 1, ThreadID: id, AuthorRole: model.AuthorRoleResponder, Content: "تم الحل"}},
				}, nil
			}
		})

		It("returns the detail to the owner", func() {
			w := do(h, http.MethodGet, "/api/v1/inquiries/7", &owner, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var detail model.ThreadDetail
			Expect(json.Unmarshal(w.Body.Bytes(), &detail)).To(Succeed())
			Expect(detail.Thread.IsConversationOpen).To(BeFalse())
			Expect(detail.Replies).To(HaveLen(1))
		})

		It("returns the detail to responders", func() {
			Expect(do(h, http.MethodGet, "/api/v1/inquiries/7", &vet, nil).Code).To(Equal(http.StatusOK))
		})

		It("answers other users exactly as for a missing thread", func() {
			stranger := caller{id: "someone-else", role: "user"}
			foreign := do(h, http.MethodGet, "/api/v1/inquiries/7", &stranger, nil)
			missing := do(h, http.MethodGet, "/api/v1/inquiries/404", &stranger, nil)
			Expect(foreign.Code).To(Equal(http.StatusNotFound))
			Expect(foreign.Code).To(Equal(missing.Code))
			Expect(foreign.Body.String()).To(Equal(missing.Body.String()))
		})

		It("returns 404 for unknown threads", func() {
			Expect(do(h, http.MethodGet, "/api/v1/inquiries/404", &admin, nil).Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("List", func() {
		It("scopes plain users to their own threads", func() {
			var got service.ThreadFilter
			svc.listFn = func(_ context.Context, _ model.ThreadKind, f service.ThreadFilter) ([]model.Thread, int64, error) {
				got = f
				return []model.Thread{{ID: 1}}, 1, nil
			}
			w := do(h, http.MethodGet, "/api/v1/inquiries?owner_id=someone-else&limit=5", &owner, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got.OwnerUserID).To(Equal("owner-1"))
			Expect(got.Limit).To(Equal(5))
			Expect(decode(w)["total"]).To(BeEquivalentTo(1))
		})

		It("lets responders filter freely", func() {
			var got service.ThreadFilter
			svc.listFn = func(_ context.Context, kind model.ThreadKind, f service.ThreadFilter) ([]model.Thread, int64, error) {
				Expect(kind).To(Equal(model.ThreadKindConsultation))
				got = f
				return nil, 0, nil
			}
			w := do(h, http.MethodGet, "/api/v1/consultations?owner_id=o9&status=pending&priority=urgent&offset=10", &vet, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got).To(Equal(service.ThreadFilter{OwnerUserID: "o9", Status: model.ThreadStatusPending, Priority: model.PriorityUrgent, Offset: 10}))
		})
	})

	Describe("Assign and priority", func() {
		It("assigns to the caller when no responder is given", func() {
			var got string
			svc.assignFn = func(_ context.Context, kind model.ThreadKind, id uint64, responderID string) (*model.Thread, error) {
				got = responderID
				return &model.Thread{ID: id, Kind: kind, Status: model.ThreadStatusAssigned, ResponderID: responderID}, nil
			}
			w := do(h, http.MethodPut, "/api/v1/consultations/3/assign", &vet, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got).To(Equal("vet-1"))
			Eventually(producer.names).Should(ContainElement("thread.assigned"))
		})

		It("assigns to the given responder", func() {
			var got string
			svc.assignFn = func(_ context.Context, _ model.ThreadKind, id uint64, responderID string) (*model.Thread, error) {
				got = responderID
				return &model.Thread{ID: id}, nil
			}
			w := do(h, http.MethodPut, "/api/v1/consultations/3/assign", &admin, map[string]string{"responder_id": "vet-7"})
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got).To(Equal("vet-7"))
		})

		It("maps invalid priorities to 400", func() {
			svc.updatePriorityFn = func(context.Context, model.ThreadKind, uint64, model.Priority) (*model.Thread, error) {
				return nil, errs.ErrInvalidPriority
			}
			w := do(h, http.MethodPut, "/api/v1/inquiries/3/priority", &admin, map[string]string{"priority": "asap"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("forbids owners from changing priority", func() {
			w := do(h, http.MethodPut, "/api/v1/inquiries/3/priority", &owner, map[string]string{"priority": "urgent"})
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})
})
