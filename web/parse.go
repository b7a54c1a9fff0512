package web

import (
	"golang.org/x/net/html"
)

// Attr returns the value of the named attribute on the given node, or the
// empty string if the node has no such attribute.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ForEachNode applies a function to the given node and each of its
// descendants.
func ForEachNode(node *html.Node, fn func(n *html.Node) error) error {
	var iter func(n *html.Node) error
	iter = func(n *html.Node) error {
		err := fn(n)
		if err != nil {
			return err
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			err := iter(c)
			if err != nil {
				return err
			}
		}

		return nil
	}

	return iter(node)
}

// NodesWithDataVal returns a slice of all descendant nodes whose "data" field
// has the given value.
func NodesWithDataVal(node *html.Node, dataName string) []*html.Node {
	var nodes []*html.Node

	ForEachNode(node, func(n *html.Node) error {
		if n.Type == html.ElementNode && n.Data == dataName {
			nodes = append(nodes, n)
		}
		return nil
	})

	return nodes
}

// NodeWithID returns the first descendant element with the given tag name
// and id attribute, or nil if there is none.
func NodeWithID(node *html.Node, dataName string, id string) *html.Node {
	for _, n := range NodesWithDataVal(node, dataName) {
		if Attr(n, "id") == id {
			return n
		}
	}
	return nil
}
