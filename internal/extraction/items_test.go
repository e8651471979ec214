package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseItems", func() {
	var (
		text  string
		items []Item
	)

	JustBeforeEach(func() {
		items = ParseItems(text)
	})

	When("the array is embedded in prose", func() {
		BeforeEach(func() {
			text = `Garbage text [{"item":"Banana","price":"1,50"}] trailing`
		})

		It("returns the single item", func() {
			Expect(items).To(HaveLen(1))
		})

		It("normalizes the string price", func() {
			Expect(items[0]).To(Equal(Item{Item: "Banana", Price: 1.50, Quantity: 1}))
		})
	})

	When("the response contains no bracketed array", func() {
		BeforeEach(func() {
			text = "I could not find any items on this receipt."
		})

		It("returns an empty list", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the bracketed substring is not valid JSON", func() {
		BeforeEach(func() {
			text = `[{"item": "Banana", "price": ]`
		})

		It("returns an empty list", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("entries are malformed", func() {
		BeforeEach(func() {
			text = `[
				"not an object",
				{"price": 1.99},
				{"item": "   ", "price": 1.99},
				{"item": "No price"},
				{"item": "Boolean price", "price": true},
				{"item": "Good", "price": 2.50}
			]`
		})

		It("keeps only well-formed entries", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Item).To(Equal("Good"))
		})
	})

	When("a price normalizes to zero", func() {
		BeforeEach(func() {
			text = `[{"item":"Free sample","price":"N/A"},{"item":"Water","price":"0,89"}]`
		})

		It("drops the zero-price entry silently", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Item).To(Equal("Water"))
			Expect(items[0].Price).To(Equal(0.89))
		})
	})

	When("quantities are provided", func() {
		BeforeEach(func() {
			text = `[
				{"item":"Milk","price":1.20,"quantity":3},
				{"item":"Bread","price":2.00,"quantity":"two"},
				{"item":"Eggs","price":3.10,"quantity":0}
			]`
		})

		It("uses the numeric quantity when valid and defaults to 1 otherwise", func() {
			Expect(items).To(HaveLen(3))
			Expect(items[0].Quantity).To(Equal(3))
			Expect(items[1].Quantity).To(Equal(1))
			Expect(items[2].Quantity).To(Equal(1))
		})
	})

	When("item names carry whitespace", func() {
		BeforeEach(func() {
			text = `[{"item":"  Agua Luso 1.5L  ","price":"0,89","quantity":1}]`
		})

		It("trims the name", func() {
			Expect(items[0].Item).To(Equal("Agua Luso 1.5L"))
		})
	})
})
