package gate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/gate"
	"github.com/psds-microservice/consultation-service/internal/model"
)

func responder(content string, keep *bool) model.Reply {
	return model.Reply{AuthorRole: model.AuthorRoleResponder, Content: content, IsOfficial: true, KeepConversationOpen: keep}
}

func owner(content string) model.Reply {
	return model.Reply{AuthorRole: model.AuthorRoleOwner, Content: content}
}

func boolPtr(b bool) *bool { return &b }

var _ = Describe("Gate", func() {
	closed := gate.State{Status: model.ThreadStatusClosed, Open: false}

	It("starts open and pending", func() {
		s := gate.Initial()
		Expect(s.Open).To(BeTrue())
		Expect(s.Status).To(Equal(model.ThreadStatusPending))
	})

	Describe("Apply", func() {
		DescribeTable("rejects blank content for both roles",
			func(r model.Reply) {
				s, err := gate.Apply(gate.Initial(), r)
				Expect(err).To(MatchError(errs.ErrEmptyContent))
				Expect(s).To(Equal(gate.Initial()))
			},
			Entry("responder empty", responder("", boolPtr(true))),
			Entry("responder whitespace", responder("  \n\t", boolPtr(false))),
			Entry("owner empty", owner("")),
			Entry("owner whitespace", owner("   ")),
		)

		It("keeps the thread open when the responder asks for it", func() {
			s, err := gate.Apply(gate.Initial(), responder("راجع الطبيب خلال يومين", boolPtr(true)))
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(gate.State{Status: model.ThreadStatusAnswered, Open: true}))
		})

		It("closes the thread when the responder does not keep it open", func() {
			s, err := gate.Apply(gate.Initial(), responder("تم الحل", boolPtr(false)))
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(closed))
		})

		It("treats a missing keep flag on a responder reply as closing", func() {
			s, err := gate.Apply(gate.Initial(), responder("done", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Open).To(BeFalse())
		})

		It("lets a responder reopen a closed thread", func() {
			s, err := gate.Apply(closed, responder("one more thing", boolPtr(true)))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Open).To(BeTrue())
			Expect(s.Status).To(Equal(model.ThreadStatusAnswered))
		})

		It("moves an answered thread back to pending on an owner reply without touching the gate", func() {
			answered := gate.State{Status: model.ThreadStatusAnswered, Open: true}
			s, err := gate.Apply(answered, owner("thanks, still limping"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(gate.State{Status: model.ThreadStatusPending, Open: true}))
		})

		It("refuses owner replies while closed", func() {
			s, err := gate.Apply(closed, owner("hello?"))
			Expect(err).To(MatchError(errs.ErrConversationClosed))
			Expect(s).To(Equal(closed))
		})

		It("refuses owner replies that try to set the gate", func() {
			r := owner("keep it open")
			r.KeepConversationOpen = boolPtr(true)
			_, err := gate.Apply(gate.Initial(), r)
			Expect(err).To(MatchError(errs.ErrOwnerCannotSetGate))
		})

		It("rejects unknown roles", func() {
			_, err := gate.Apply(gate.Initial(), model.Reply{AuthorRole: "bot", Content: "x"})
			Expect(err).To(HaveOccurred())
		})

		It("follows a full responder/owner cycle until closed", func() {
			s := gate.Initial()
			var err error
			s, err = gate.Apply(s, responder("first answer", boolPtr(true)))
			Expect(err).NotTo(HaveOccurred())
			s, err = gate.Apply(s, owner("follow-up"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Status).To(Equal(model.ThreadStatusPending))
			s, err = gate.Apply(s, responder("final answer", boolPtr(false)))
			Expect(err).NotTo(HaveOccurred())
			_, err = gate.Apply(s, owner("one more"))
			Expect(err).To(MatchError(errs.ErrConversationClosed))
		})
	})

	Describe("Assign", func() {
		It("moves pending to assigned", func() {
			s, err := gate.Assign(gate.Initial())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Status).To(Equal(model.ThreadStatusAssigned))
			Expect(s.Open).To(BeTrue())
		})

		It("keeps answered threads answered", func() {
			s, err := gate.Assign(gate.State{Status: model.ThreadStatusAnswered, Open: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Status).To(Equal(model.ThreadStatusAnswered))
		})

		It("refuses closed threads", func() {
			_, err := gate.Assign(closed)
			Expect(err).To(MatchError(errs.ErrConversationClosed))
		})
	})

	It("labels transitions", func() {
		Expect(gate.Transition(gate.Initial(), closed)).To(Equal("open->closed"))
		Expect(gate.Transition(closed, closed)).To(Equal("closed->closed"))
	})
})
