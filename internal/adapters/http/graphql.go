package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	geofenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Geofence",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"kind":       &graphql.Field{Type: graphql.String},
			"center":     &graphql.Field{Type: geoPointType},
			"radius_m":   &graphql.Field{Type: graphql.Float},
			"vertices":   &graphql.Field{Type: graphql.NewList(geoPointType)},
			"max_speed":  &graphql.Field{Type: graphql.Float},
			"category":   &graphql.Field{Type: graphql.String},
			"authorized": &graphql.Field{Type: graphql.Boolean},
			"active":     &graphql.Field{Type: graphql.Boolean},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	vehicleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vehicle",
		Fields: graphql.Fields{
			"time":       &graphql.Field{Type: graphql.DateTime},
			"vehicle_id": &graphql.Field{Type: graphql.String},
			"driver_id":  &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"altitude":   &graphql.Field{Type: graphql.Float},
			"speed":      &graphql.Field{Type: graphql.Float},
			"heading":    &graphql.Field{Type: graphql.Float},
			"accuracy":   &graphql.Field{Type: graphql.Float},
			"satellites": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"vehicles": &graphql.Field{
				Type:        graphql.NewList(vehicleType),
				Description: "Latest position of every tracked vehicle",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Vehicles.All(), nil
				},
			},
			"vehicle": &graphql.Field{
				Type:        vehicleType,
				Description: "Latest position of one vehicle",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Vehicles.CurrentPosition(p.Args["id"].(string))
				},
			},
			"vehiclesNear": &graphql.Field{
				Type:        graphql.NewList(vehicleType),
				Description: "Vehicles within a radius of a point, closest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Vehicles.Near(lat, lon, radius, limit), nil
				},
			},
			"vehicleHistory": &graphql.Field{
				Type:        graphql.NewList(vehicleType),
				Description: "Recent positions of a vehicle within a window, oldest first",
				Args: graphql.FieldConfigArgument{
					"id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"window": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "15m"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					window, err := time.ParseDuration(p.Args["window"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Vehicles.History(p.Args["id"].(string), window)
				},
			},
			"geofences": &graphql.Field{
				Type:        graphql.NewList(geofenceType),
				Description: "Registered geofences",
				Args: graphql.FieldConfigArgument{
					"includeInactive": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fences.List(p.Context, p.Args["includeInactive"].(bool))
				},
			},
			"geofence": &graphql.Field{
				Type:        geofenceType,
				Description: "One geofence by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fences.Get(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
