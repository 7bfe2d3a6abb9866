package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		base     *HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		base = NewHookableBase()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke hooks in registration order", func() {
		pos := &HookPos{Name: "Test"}
		ctx := HookCtx{Domain: base, Pos: pos, Item: 42}

		first := NewMockHook(mockCtrl)
		second := NewMockHook(mockCtrl)
		base.AcceptHook(first)
		base.AcceptHook(second)

		gomock.InOrder(
			first.EXPECT().Func(ctx),
			second.EXPECT().Func(ctx),
		)

		base.InvokeHook(ctx)

		Expect(base.NumHooks()).To(Equal(2))
	})

	It("should adapt functions into hooks", func() {
		var got HookCtx
		base.AcceptHook(HookFunc(func(ctx HookCtx) { got = ctx }))

		base.InvokeHook(HookCtx{Item: "x"})

		Expect(got.Item).To(Equal("x"))
	})
})
