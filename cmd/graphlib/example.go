package main

import (
	"sync"
	"time"

	"github.com/hanpama/graphlib/connection"
	"github.com/hanpama/graphlib/graphql"
	"github.com/hanpama/graphlib/rx"
)

type person struct {
	Name     string    `json:"name"`
	Age      int       `json:"age"`
	Children []string  `json:"-"`
	Joined   time.Time `json:"joined"`
}

// directory is the in-memory store behind the example schema.
type directory struct {
	mu     sync.RWMutex
	people []*person
	added  *rx.PublishProcessor
}

func newDirectory() *directory {
	joined := time.Date(2020, 12, 19, 0, 0, 0, 0, time.UTC)
	return &directory{
		people: []*person{
			{Name: "James", Age: 42, Children: []string{"John", "Robert"}, Joined: joined},
			{Name: "John", Age: 12, Joined: joined},
			{Name: "Robert", Age: 10, Joined: joined},
		},
		added: rx.NewPublishProcessor(),
	}
}

func (d *directory) byName(name string) *person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.people {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (d *directory) snapshot() []*person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*person(nil), d.people...)
}

func (d *directory) add(p *person) {
	d.mu.Lock()
	d.people = append(d.people, p)
	d.mu.Unlock()
	d.added.OnNext(p)
}

func exampleSchema(d *directory) (*graphql.Schema, error) {
	b := graphql.NewBuilder()
	conns := connection.NewRegistry(b)

	personType, err := b.NewObject(&graphql.Object{
		Name:        "Person",
		Description: "A person in the directory.",
		Fields: graphql.Fields{
			{Name: "name", Type: graphql.NewNonNull(graphql.String)},
			{Name: "age", Type: graphql.NewNonNull(graphql.Int)},
			{Name: "joined", Type: graphql.Date},
			{
				Name: "children",
				Type: graphql.NewList(graphql.NewNonNull(graphql.NewReference("Person"))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					parent := p.Source.(*person)
					children := make([]*person, 0, len(parent.Children))
					for _, name := range parent.Children {
						if c := d.byName(name); c != nil {
							children = append(children, c)
						}
					}
					return children, nil
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	people, err := conns.ConnectionType(personType)
	if err != nil {
		return nil, err
	}

	query, err := b.NewObject(&graphql.Object{
		Name: "Query",
		Fields: graphql.Fields{
			{
				Name: "person",
				Type: personType,
				Args: graphql.Args{"name": graphql.NewNonNull(graphql.String)},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if found := d.byName(p.Args["name"].(string)); found != nil {
						return found, nil
					}
					return nil, nil
				},
			},
			{
				Name: "people",
				Type: people,
				Args: connection.Args(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					all := d.snapshot()
					start, end, err := connection.Window(p.Args, len(all))
					if err != nil {
						return nil, err
					}
					return connection.Result[*person]{Total: len(all), Start: start, Hits: all[start:end]}, nil
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	input, err := b.NewInputObject(&graphql.InputObject{
		Name: "PersonInput",
		Fields: []*graphql.InputField{
			{Name: "name", Type: graphql.NewNonNull(graphql.String)},
			{Name: "age", Type: graphql.Int, DefaultValue: 0},
			{Name: "joined", Type: graphql.Date},
		},
	})
	if err != nil {
		return nil, err
	}

	mutation, err := b.NewObject(&graphql.Object{
		Name: "Mutation",
		Fields: graphql.Fields{{
			Name: "addPerson",
			Type: graphql.NewNonNull(personType),
			Args: graphql.Args{"input": graphql.NewNonNull(input)},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				in := p.Args["input"].(map[string]any)
				added := &person{Name: in["name"].(string), Joined: time.Now().UTC()}
				if age, ok := in["age"].(int); ok {
					added.Age = age
				}
				if joined, ok := in["joined"].(time.Time); ok {
					added.Joined = joined
				}
				d.add(added)
				return added, nil
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	subscription, err := b.NewObject(&graphql.Object{
		Name: "Subscription",
		Fields: graphql.Fields{{
			Name: "personAdded",
			Type: graphql.NewNonNull(personType),
			Args: graphql.Args{"minAge": graphql.Int},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				minAge, _ := p.Args["minAge"].(int)
				return d.added.Filter(func(v any) bool {
					return v.(*person).Age >= minAge
				}), nil
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	return b.BuildSchema(graphql.SchemaConfig{
		Query:        query,
		Mutation:     mutation,
		Subscription: subscription,
	})
}
